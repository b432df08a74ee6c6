package migration_test

import (
	"context"
	"errors"
	"strings"

	api "github.com/clinicore/migration-engine/api/v1alpha1"
	"github.com/clinicore/migration-engine/internal/blob"
	"github.com/clinicore/migration-engine/internal/config"
	"github.com/clinicore/migration-engine/internal/migration"
	st "github.com/clinicore/migration-engine/internal/store"
	"github.com/clinicore/migration-engine/internal/store/model"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

// brokenCreateRepo refuses every patient insert, the shape of a repository
// outage mid-run.
type brokenCreateRepo struct {
	st.EntityRepository
}

func (r brokenCreateRepo) CreatePatient(ctx context.Context, patient model.Patient) (uuid.UUID, error) {
	return uuid.Nil, errors.New("connection refused")
}

var _ = Describe("orchestrator", Ordered, func() {
	var (
		store        st.Store
		gormdb       *gorm.DB
		blobs        blob.Store
		orchestrator *migration.Orchestrator
		cancel       context.CancelFunc
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		cfg.Blob.LocalFolder = GinkgoT().TempDir()

		db, err := st.InitDB(cfg)
		Expect(err).To(BeNil())

		store = st.NewStore(db)
		gormdb = db
		Expect(store.InitialMigration()).To(BeNil())

		blobs, err = blob.New(cfg)
		Expect(err).To(BeNil())

		registry := migration.NewImporterRegistry(store.Entity())
		orchestrator = migration.NewOrchestrator(store, blobs, registry, nil, cfg)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		orchestrator.Start(ctx)
	})

	AfterAll(func() {
		cancel()
		orchestrator.Wait()
		store.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM ledger_entries;")
		gormdb.Exec("DELETE FROM jobs;")
		gormdb.Exec("DELETE FROM patients;")
		gormdb.Exec("DELETE FROM financial_records;")
	})

	createJob := func(jobType api.JobType, format api.InputFormat, payload string) *model.Job {
		job, err := store.Job().Create(context.TODO(), model.Job{
			ID:          uuid.New(),
			OrgID:       "org-1",
			Type:        string(jobType),
			InputFormat: string(format),
			Status:      string(api.JobStatusPending),
		})
		Expect(err).To(BeNil())

		err = blobs.Put(context.TODO(), migration.UploadKey(job), strings.NewReader(payload), -1)
		Expect(err).To(BeNil())

		return job
	}

	jobStatus := func(id uuid.UUID) func() string {
		return func() string {
			job, err := store.Job().Get(context.TODO(), id)
			if err != nil {
				return ""
			}
			return job.Status
		}
	}

	It("imports a clean csv file to completion", func() {
		job := createJob(api.JobTypePatients, api.InputFormatCSV,
			"first_name,last_name,date_of_birth\nAna,Silva,1989-04-12\nJoao,Souza,12/03/1975\n")

		Expect(orchestrator.Enqueue(job.ID)).To(BeNil())
		Eventually(jobStatus(job.ID), "10s", "50ms").Should(Equal("completed"))

		finished, err := store.Job().Get(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(finished.TotalRows).To(Equal(2))
		Expect(finished.ImportedRows).To(Equal(2))
		Expect(finished.FailedRows).To(Equal(0))
		Expect(finished.StartedAt).ToNot(BeNil())
		Expect(finished.CompletedAt).ToNot(BeNil())

		count, err := store.Ledger().CountByJob(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(count).To(Equal(int64(2)))

		var patients int64
		gormdb.Raw("SELECT COUNT(*) FROM patients").Scan(&patients)
		Expect(patients).To(Equal(int64(2)))
	})

	It("continues past bad rows and records their errors", func() {
		job := createJob(api.JobTypePatients, api.InputFormatCSV,
			"first_name,last_name,date_of_birth\n"+
				"Ana,Silva,1989-04-12\n"+
				"MissingLastName,,1990-01-01\n"+
				"Joao,Souza,not-a-date\n"+
				"Maria,Lima,1970-07-07\n")

		Expect(orchestrator.Enqueue(job.ID)).To(BeNil())
		Eventually(jobStatus(job.ID), "10s", "50ms").Should(Equal("completed"))

		finished, err := store.Job().Get(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(finished.TotalRows).To(Equal(4))
		Expect(finished.ImportedRows).To(Equal(2))
		Expect(finished.FailedRows).To(Equal(2))

		rowErrors := finished.RowErrors()
		Expect(rowErrors).To(HaveLen(2))
		Expect(rowErrors[0].RowIndex).To(Equal(1))
		Expect(rowErrors[1].RowIndex).To(Equal(2))
	})

	It("fails the job when the payload cannot be parsed at all", func() {
		job := createJob(api.JobTypeFinancial, api.InputFormatJSON, `{"broken":`)

		Expect(orchestrator.Enqueue(job.ID)).To(BeNil())
		Eventually(jobStatus(job.ID), "10s", "50ms").Should(Equal("failed"))

		finished, err := store.Job().Get(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(finished.ImportedRows).To(Equal(0))
		Expect(finished.CompletedAt).ToNot(BeNil())

		rowErrors := finished.RowErrors()
		Expect(rowErrors).ToNot(BeEmpty())
		Expect(rowErrors[len(rowErrors)-1].Message).To(ContainSubstring("decoding json payload"))
	})

	It("keeps the rows imported around a bad one", func() {
		job := createJob(api.JobTypeFinancial, api.InputFormatJSON,
			`[{"amount":"100","method":"pix"},{"amount":"-5","method":"cash"},{"amount":"200,50","method":"card"}]`)

		Expect(orchestrator.Enqueue(job.ID)).To(BeNil())
		Eventually(jobStatus(job.ID), "10s", "50ms").Should(Equal("completed"))

		finished, err := store.Job().Get(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(finished.ImportedRows).To(Equal(2))
		Expect(finished.FailedRows).To(Equal(1))

		var cents []int64
		gormdb.Raw("SELECT amount_cents FROM financial_records ORDER BY amount_cents").Scan(&cents)
		Expect(cents).To(Equal([]int64{10000, 20050}))
	})

	It("aborts after consecutive repository failures and skips the tail", func() {
		registry := migration.NewImporterRegistry(brokenCreateRepo{store.Entity()})
		broken := migration.NewOrchestrator(store, blobs, registry, nil, config.NewDefault())

		brokenCtx, stop := context.WithCancel(context.Background())
		broken.Start(brokenCtx)
		defer broken.Wait()
		defer stop()

		job := createJob(api.JobTypePatients, api.InputFormatCSV,
			"first_name,last_name,date_of_birth\n"+
				"Ana,Silva,1989-04-12\n"+
				"Joao,Souza,1975-03-12\n"+
				"Maria,Lima,1970-07-07\n"+
				"Pedro,Alves,1982-11-23\n"+
				"Clara,Costa,1995-02-18\n"+
				"Rui,Melo,1961-09-30\n"+
				"Ines,Pinto,1988-06-05\n"+
				"Tiago,Ramos,1979-12-01\n")

		Expect(broken.Enqueue(job.ID)).To(BeNil())
		Eventually(jobStatus(job.ID), "10s", "50ms").Should(Equal("failed"))

		finished, err := store.Job().Get(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(finished.TotalRows).To(Equal(8))
		Expect(finished.ImportedRows).To(Equal(0))
		Expect(finished.FailedRows).To(Equal(5))
		Expect(finished.SkippedRows).To(Equal(3))
		Expect(finished.TotalRows).To(Equal(finished.ImportedRows + finished.FailedRows + finished.SkippedRows))

		rowErrors := finished.RowErrors()
		Expect(rowErrors).To(HaveLen(6))
		Expect(rowErrors[len(rowErrors)-1].Message).To(ContainSubstring("consecutive repository failures"))

		var patients int64
		gormdb.Raw("SELECT COUNT(*) FROM patients").Scan(&patients)
		Expect(patients).To(Equal(int64(0)))
	})

	It("does not run the same job twice", func() {
		job := createJob(api.JobTypePatients, api.InputFormatCSV,
			"first_name,last_name,date_of_birth\nAna,Silva,1989-04-12\n")

		Expect(orchestrator.Enqueue(job.ID)).To(BeNil())
		Expect(orchestrator.Enqueue(job.ID)).To(BeNil())
		Eventually(jobStatus(job.ID), "10s", "50ms").Should(Equal("completed"))

		// the second pickup loses the pending->running guard
		Consistently(jobStatus(job.ID), "500ms", "50ms").Should(Equal("completed"))

		finished, err := store.Job().Get(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(finished.ImportedRows).To(Equal(1))

		var patients int64
		gormdb.Raw("SELECT COUNT(*) FROM patients").Scan(&patients)
		Expect(patients).To(Equal(int64(1)))
	})
})
