package migration_test

import (
	"context"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/config"
	"github.com/clinicore/migration-engine/internal/migration"
	st "github.com/clinicore/migration-engine/internal/store"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func makeRow(index int, values map[string]string) migration.Row {
	columns := make([]string, 0, len(values))
	for k := range values {
		columns = append(columns, k)
	}
	return migration.Row{Index: index, Columns: columns, Values: values}
}

var _ = Describe("importers", Ordered, func() {
	var (
		store    st.Store
		gormdb   *gorm.DB
		registry *migration.ImporterRegistry
	)

	BeforeAll(func() {
		db, err := st.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		store = st.NewStore(db)
		gormdb = db

		Expect(store.InitialMigration()).To(BeNil())
		registry = migration.NewImporterRegistry(store.Entity())
	})

	AfterAll(func() {
		store.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM patients;")
		gormdb.Exec("DELETE FROM appointments;")
		gormdb.Exec("DELETE FROM financial_records;")
	})

	Context("registry", func() {
		It("resolves every job type", func() {
			for _, jobType := range []api.JobType{
				api.JobTypePatients,
				api.JobTypeAppointments,
				api.JobTypeClinical,
				api.JobTypeFinancial,
			} {
				importer, err := registry.Resolve(jobType)
				Expect(err).To(BeNil())
				Expect(importer.Kind()).To(Equal(jobType))
			}
		})

		It("rejects an unknown job type", func() {
			_, err := registry.Resolve(api.JobType("inventory"))
			Expect(err).ToNot(BeNil())
		})
	})

	Context("patients", func() {
		It("imports a valid row", func() {
			importer, err := registry.Resolve(api.JobTypePatients)
			Expect(err).To(BeNil())

			entry, err := importer.ImportRow(context.TODO(), "org-1", makeRow(0, map[string]string{
				"first_name":    "Ana",
				"last_name":     "Silva",
				"date_of_birth": "1989-04-12",
				"email":         "ana@example.com",
			}))
			Expect(err).To(BeNil())
			Expect(entry.EntityType).To(Equal("patient"))

			var count int64
			gormdb.Raw("SELECT COUNT(*) FROM patients WHERE org_id = 'org-1'").Scan(&count)
			Expect(count).To(Equal(int64(1)))
		})

		It("rejects a row without required columns", func() {
			importer, err := registry.Resolve(api.JobTypePatients)
			Expect(err).To(BeNil())

			_, err = importer.ImportRow(context.TODO(), "org-1", makeRow(4, map[string]string{
				"first_name": "Ana",
			}))
			rowErr, ok := migration.AsRowError(err)
			Expect(ok).To(BeTrue())
			Expect(rowErr.Kind).To(Equal(migration.RowErrorValidation))
			Expect(rowErr.RowIndex).To(Equal(4))
			Expect(rowErr.Message).To(ContainSubstring("last_name"))
		})

		It("rejects a malformed email", func() {
			importer, err := registry.Resolve(api.JobTypePatients)
			Expect(err).To(BeNil())

			_, err = importer.ImportRow(context.TODO(), "org-1", makeRow(1, map[string]string{
				"first_name":    "Ana",
				"last_name":     "Silva",
				"date_of_birth": "1989-04-12",
				"email":         "not-an-email",
			}))
			rowErr, ok := migration.AsRowError(err)
			Expect(ok).To(BeTrue())
			Expect(rowErr.Kind).To(Equal(migration.RowErrorValidation))
		})

		It("rejects an unparseable date of birth", func() {
			importer, err := registry.Resolve(api.JobTypePatients)
			Expect(err).To(BeNil())

			_, err = importer.ImportRow(context.TODO(), "org-1", makeRow(2, map[string]string{
				"first_name":    "Ana",
				"last_name":     "Silva",
				"date_of_birth": "sometime",
			}))
			rowErr, ok := migration.AsRowError(err)
			Expect(ok).To(BeTrue())
			Expect(rowErr.Message).To(ContainSubstring("date_of_birth"))
		})
	})

	Context("appointments", func() {
		It("requires a patient reference", func() {
			importer, err := registry.Resolve(api.JobTypeAppointments)
			Expect(err).To(BeNil())

			_, err = importer.ImportRow(context.TODO(), "org-1", makeRow(0, map[string]string{
				"scheduled_at": "2024-03-01 10:00:00",
				"professional": "Dr. Souza",
			}))
			rowErr, ok := migration.AsRowError(err)
			Expect(ok).To(BeTrue())
			Expect(rowErr.Kind).To(Equal(migration.RowErrorValidation))
		})

		It("accepts a document number instead of an id", func() {
			importer, err := registry.Resolve(api.JobTypeAppointments)
			Expect(err).To(BeNil())

			_, err = importer.ImportRow(context.TODO(), "org-1", makeRow(0, map[string]string{
				"patient_document": "123.456.789-00",
				"scheduled_at":     "2024-03-01 10:00:00",
				"professional":     "Dr. Souza",
			}))
			Expect(err).To(BeNil())
		})

		It("rejects a malformed patient id", func() {
			importer, err := registry.Resolve(api.JobTypeAppointments)
			Expect(err).To(BeNil())

			_, err = importer.ImportRow(context.TODO(), "org-1", makeRow(0, map[string]string{
				"patient_id":   "not-a-uuid",
				"scheduled_at": "2024-03-01 10:00:00",
				"professional": "Dr. Souza",
			}))
			rowErr, ok := migration.AsRowError(err)
			Expect(ok).To(BeTrue())
			Expect(rowErr.Kind).To(Equal(migration.RowErrorValidation))
		})
	})

	Context("financial", func() {
		It("imports an amount with a comma decimal", func() {
			importer, err := registry.Resolve(api.JobTypeFinancial)
			Expect(err).To(BeNil())

			_, err = importer.ImportRow(context.TODO(), "org-1", makeRow(0, map[string]string{
				"amount": "150,50",
				"method": "pix",
			}))
			Expect(err).To(BeNil())

			var cents int64
			gormdb.Raw("SELECT amount_cents FROM financial_records LIMIT 1").Scan(&cents)
			Expect(cents).To(Equal(int64(15050)))
		})

		It("rejects a non-positive amount", func() {
			importer, err := registry.Resolve(api.JobTypeFinancial)
			Expect(err).To(BeNil())

			_, err = importer.ImportRow(context.TODO(), "org-1", makeRow(0, map[string]string{
				"amount": "0",
				"method": "cash",
			}))
			rowErr, ok := migration.AsRowError(err)
			Expect(ok).To(BeTrue())
			Expect(rowErr.Kind).To(Equal(migration.RowErrorValidation))
		})
	})
})
