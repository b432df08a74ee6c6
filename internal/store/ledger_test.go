package store_test

import (
	"context"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/config"
	st "github.com/clinicore/migration-engine/internal/store"
	"github.com/clinicore/migration-engine/internal/store/model"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("ledger store", Ordered, func() {
	var (
		store  st.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		db, err := st.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		store = st.NewStore(db)
		gormdb = db

		Expect(store.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		store.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM ledger_entries;")
	})

	Context("append and list", func() {
		It("preserves insertion order", func() {
			jobID := uuid.New()
			first := uuid.New()
			second := uuid.New()

			Expect(store.Ledger().Append(context.TODO(), model.LedgerEntry{
				JobID: jobID, EntityType: string(api.EntityTypePatient), EntityID: first,
			})).To(BeNil())
			Expect(store.Ledger().Append(context.TODO(), model.LedgerEntry{
				JobID: jobID, EntityType: string(api.EntityTypePatient), EntityID: second,
			})).To(BeNil())

			entries, err := store.Ledger().ListByJob(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].EntityID).To(Equal(first))
			Expect(entries[1].EntityID).To(Equal(second))
		})

		It("lists reversed for compensation", func() {
			jobID := uuid.New()
			first := uuid.New()
			second := uuid.New()

			Expect(store.Ledger().Append(context.TODO(), model.LedgerEntry{
				JobID: jobID, EntityType: string(api.EntityTypeAppointment), EntityID: first,
			})).To(BeNil())
			Expect(store.Ledger().Append(context.TODO(), model.LedgerEntry{
				JobID: jobID, EntityType: string(api.EntityTypeAppointment), EntityID: second,
			})).To(BeNil())

			entries, err := store.Ledger().ListByJobReversed(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].EntityID).To(Equal(second))
			Expect(entries[1].EntityID).To(Equal(first))
		})

		It("scopes entries to their job", func() {
			jobID := uuid.New()
			otherJob := uuid.New()

			Expect(store.Ledger().Append(context.TODO(), model.LedgerEntry{
				JobID: jobID, EntityType: string(api.EntityTypePatient), EntityID: uuid.New(),
			})).To(BeNil())
			Expect(store.Ledger().Append(context.TODO(), model.LedgerEntry{
				JobID: otherJob, EntityType: string(api.EntityTypePatient), EntityID: uuid.New(),
			})).To(BeNil())

			count, err := store.Ledger().CountByJob(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Context("remove", func() {
		It("retires a compensated entry", func() {
			jobID := uuid.New()

			Expect(store.Ledger().Append(context.TODO(), model.LedgerEntry{
				JobID: jobID, EntityType: string(api.EntityTypeFinancialRecord), EntityID: uuid.New(),
			})).To(BeNil())

			entries, err := store.Ledger().ListByJob(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(1))

			Expect(store.Ledger().Remove(context.TODO(), entries[0].Seq)).To(BeNil())

			count, err := store.Ledger().CountByJob(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))
		})

		It("tolerates removing an already retired entry", func() {
			Expect(store.Ledger().Remove(context.TODO(), 424242)).To(BeNil())
		})
	})
})
