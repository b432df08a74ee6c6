package migration_test

import (
	"io"
	"strings"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/migration"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("row reader", func() {
	Context("csv", func() {
		It("reads rows keyed by header", func() {
			reader, err := migration.NewRowReader(api.InputFormatCSV, strings.NewReader("first_name,last_name\nAna,Silva\nJoao,Souza\n"))
			Expect(err).To(BeNil())

			row, err := reader.Next()
			Expect(err).To(BeNil())
			Expect(row.Index).To(Equal(0))
			Expect(row.Value("first_name")).To(Equal("Ana"))

			row, err = reader.Next()
			Expect(err).To(BeNil())
			Expect(row.Index).To(Equal(1))
			Expect(row.Value("last_name")).To(Equal("Souza"))

			_, err = reader.Next()
			Expect(err).To(Equal(io.EOF))
		})

		It("skips a UTF-8 byte order mark", func() {
			reader, err := migration.NewRowReader(api.InputFormatCSV, strings.NewReader("\xEF\xBB\xBFname\nAna\n"))
			Expect(err).To(BeNil())

			row, err := reader.Next()
			Expect(err).To(BeNil())
			Expect(row.Value("name")).To(Equal("Ana"))
		})

		It("reports a field count mismatch as a row error and keeps reading", func() {
			reader, err := migration.NewRowReader(api.InputFormatCSV, strings.NewReader("a,b\n1,2,3\n4,5\n"))
			Expect(err).To(BeNil())

			_, err = reader.Next()
			rowErr, ok := migration.AsRowError(err)
			Expect(ok).To(BeTrue())
			Expect(rowErr.RowIndex).To(Equal(0))

			row, err := reader.Next()
			Expect(err).To(BeNil())
			Expect(row.Value("b")).To(Equal("5"))
		})

		It("trims surrounding whitespace off cells", func() {
			reader, err := migration.NewRowReader(api.InputFormatCSV, strings.NewReader("name,city\nAna ,  Lisboa\n"))
			Expect(err).To(BeNil())

			row, err := reader.Next()
			Expect(err).To(BeNil())
			Expect(row.Value("name")).To(Equal("Ana"))
			Expect(row.Value("city")).To(Equal("Lisboa"))
		})

		It("handles a file with only a header", func() {
			reader, err := migration.NewRowReader(api.InputFormatCSV, strings.NewReader("a,b\n"))
			Expect(err).To(BeNil())

			_, err = reader.Next()
			Expect(err).To(Equal(io.EOF))
		})

		It("handles an empty file", func() {
			reader, err := migration.NewRowReader(api.InputFormatCSV, strings.NewReader(""))
			Expect(err).To(BeNil())

			_, err = reader.Next()
			Expect(err).To(Equal(io.EOF))
		})
	})

	Context("json", func() {
		It("reads an array of objects with coerced scalars", func() {
			reader, err := migration.NewRowReader(api.InputFormatJSON, strings.NewReader(`[{"name":"Ana","age":34,"active":true,"notes":null}]`))
			Expect(err).To(BeNil())

			row, err := reader.Next()
			Expect(err).To(BeNil())
			Expect(row.Value("name")).To(Equal("Ana"))
			Expect(row.Value("age")).To(Equal("34"))
			Expect(row.Value("active")).To(Equal("true"))
			Expect(row.Value("notes")).To(Equal(""))
		})

		It("reads an empty array", func() {
			reader, err := migration.NewRowReader(api.InputFormatJSON, strings.NewReader(`[]`))
			Expect(err).To(BeNil())

			_, err = reader.Next()
			Expect(err).To(Equal(io.EOF))
		})

		It("fails the whole stream on a malformed payload", func() {
			_, err := migration.NewRowReader(api.InputFormatJSON, strings.NewReader(`{"not":"an array"`))
			Expect(err).ToNot(BeNil())
			_, ok := migration.AsRowError(err)
			Expect(ok).To(BeFalse())
		})

		It("fails the whole stream on content trailing the array", func() {
			_, err := migration.NewRowReader(api.InputFormatJSON, strings.NewReader(`[{"a":"1"}] {"b":"2"}`))
			Expect(err).ToNot(BeNil())
			Expect(err.Error()).To(ContainSubstring("trailing data"))
			_, ok := migration.AsRowError(err)
			Expect(ok).To(BeFalse())
		})

		It("reports a nested value as a row error", func() {
			reader, err := migration.NewRowReader(api.InputFormatJSON, strings.NewReader(`[{"name":{"nested":true}},{"name":"Ana"}]`))
			Expect(err).To(BeNil())

			_, err = reader.Next()
			rowErr, ok := migration.AsRowError(err)
			Expect(ok).To(BeTrue())
			Expect(rowErr.RowIndex).To(Equal(0))

			row, err := reader.Next()
			Expect(err).To(BeNil())
			Expect(row.Value("name")).To(Equal("Ana"))
		})

		It("knows how many rows remain", func() {
			reader, err := migration.NewRowReader(api.InputFormatJSON, strings.NewReader(`[{"a":"1"},{"a":"2"},{"a":"3"}]`))
			Expect(err).To(BeNil())

			_, err = reader.Next()
			Expect(err).To(BeNil())

			remaining, known := reader.Remaining()
			Expect(known).To(BeTrue())
			Expect(remaining).To(Equal(2))
		})
	})
})
