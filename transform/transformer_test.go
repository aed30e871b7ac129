package transform_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/totes/aws/s3"
	"github.com/relloyd/totes/file"
	"github.com/relloyd/totes/logger"
	"github.com/relloyd/totes/stats"
	tabledefinition "github.com/relloyd/totes/table-definition"
	"github.com/relloyd/totes/transform"
	"github.com/relloyd/totes/watermark"
)

// failingStore fails Put for keys containing failOn.
type failingStore struct {
	*s3.MemoryClient
	failOn string
}

func (f *failingStore) Put(key string, data []byte) error {
	if f.failOn != "" && strings.Contains(key, f.failOn) {
		return errors.New("put failed")
	}
	return f.MemoryClient.Put(key, data)
}

const (
	batch1 = "2023-07-31T11:24:11.422525"
	batch2 = "2023-08-01T09:00:00.000000"

	addressCSV = "address_id,address_line_1,address_line_2,district,city,postal_code,country,phone,created_at,last_updated\n" +
		"1,6826 Herzog Via,,Avon,New Patienceburgh,28441,Turkey,1803 637401,2022-11-03 14:20:49.962,2022-11-03 14:20:49.962\n" +
		"2,179 Alexie Cliffs,,,Aliso Viejo,99305-7380,San Marino,9621 880720,2022-11-03 14:20:49.962,2022-11-03 14:20:49.962\n"
	departmentCSV = "department_id,department_name,location,manager,created_at,last_updated\n" +
		"1,Sales,Manchester,Richard Roma,2022-11-03 14:20:49.962,2022-11-03 14:20:49.962\n"
	staffCSV = "staff_id,first_name,last_name,department_id,email_address,created_at,last_updated\n" +
		"1,Jeremie,Franey,1,jeremie.franey@terrifictotes.com,2022-11-03 14:20:51.563,2022-11-03 14:20:51.563\n" +
		"2,Deron,Beier,9,deron.beier@terrifictotes.com,2022-11-03 14:20:51.563,2022-11-03 14:20:51.563\n"
	counterpartyCSV = "counterparty_id,counterparty_legal_name,legal_address_id,commercial_contact,delivery_contact,created_at,last_updated\n" +
		"1,Fahey and Sons,2,Micheal Toy,Mrs. Lucy Runolfsdottir,2022-11-03 14:20:51.563,2022-11-03 14:20:51.563\n"
	currencyCSV = "currency_id,currency_code,created_at,last_updated\n" +
		"1,GBP,2022-11-03 14:20:49.962,2022-11-03 14:20:49.962\n" +
		"2,XYZ,2022-11-03 14:20:49.962,2022-11-03 14:20:49.962\n"
	salesOrderCSV = "sales_order_id,created_at,last_updated,design_id,staff_id,counterparty_id,units_sold,unit_price,currency_id,agreed_delivery_date,agreed_payment_date,agreed_delivery_location_id\n" +
		"2,2022-11-03 14:20:52.186,2022-11-04 10:00:00,3,19,8,42972,3.94,2,2022-11-07,2022-11-08,8\n" +
		"3,2022-11-03,2022-11-03 14:20:52.186,4,10,4,65839,2.91,3,2022-11-06,2022-11-07,19\n"
)

var _ = Describe("Transformer", func() {
	var (
		ctx       context.Context
		log       logger.Logger
		ingestion *s3.MemoryClient
		processed *s3.MemoryClient
		registry  *tabledefinition.Registry
		tr        *transform.Transformer
	)

	put := func(batchID string, table string, content string) {
		Expect(ingestion.Put(batchID+"/"+table+".csv", []byte(content))).To(Succeed())
	}

	read := func(batchID string, table string) [][]string {
		data, err := processed.Get(batchID + "/" + table + ".csv")
		Expect(err).NotTo(HaveOccurred())
		d, _ := registry.Get(table)
		tab, err := tabledefinition.ParseCSV(d, data)
		Expect(err).NotTo(HaveOccurred())
		return tab.Rows
	}

	BeforeEach(func() {
		ctx = context.Background()
		log = logger.NewLogger("totes", "error", true)
		ingestion = s3.NewMemoryClient()
		processed = s3.NewMemoryClient()
		registry = tabledefinition.NewRegistry()
		var err error
		tr, err = transform.NewTransformer(&transform.Config{
			Log:       log,
			Ingestion: ingestion,
			Processed: processed,
			Registry:  registry,
			Stats:     stats.NewRunStats(log),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("builds every star table from a complete batch", func() {
		put(batch1, "address", addressCSV)
		put(batch1, "department", departmentCSV)
		put(batch1, "staff", staffCSV)
		put(batch1, "counterparty", counterpartyCSV)
		put(batch1, "currency", currencyCSV)
		put(batch1, "sales_order", salesOrderCSV)
		put(batch1, "payment", "payment_id\n1\n")
		done, err := tr.TransformPending(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(done).To(Equal([]string{batch1}))

		Expect(read(batch1, "dim_location")[0]).To(Equal([]string{"1", "6826 Herzog Via", "", "Avon", "New Patienceburgh", "28441", "Turkey", "1803 637401"}))
		staff := read(batch1, "dim_staff")
		Expect(staff[0]).To(Equal([]string{"1", "Jeremie", "Franey", "jeremie.franey@terrifictotes.com", "Sales", "Manchester"}))
		Expect(staff[1][4:]).To(Equal([]string{"", ""}))
		Expect(read(batch1, "dim_counterparty")[0]).To(Equal([]string{
			"1", "Fahey and Sons", "179 Alexie Cliffs", "", "", "Aliso Viejo", "99305-7380", "San Marino", "9621 880720"}))
		Expect(read(batch1, "dim_currency")).To(Equal([][]string{{"1", "GBP", "British Pound"}, {"2", "XYZ", ""}}))
		sales := read(batch1, "fact_sales_order")
		Expect(sales[0]).To(Equal([]string{
			"2", "2", "2022-11-03", "14:20:52.186", "2022-11-04", "10:00:00", "19", "8", "42972", "3.94", "2", "3", "2022-11-08", "2022-11-07", "8"}))
		Expect(sales[1][2:4]).To(Equal([]string{"2022-11-03", "00:00:00"}))

		exists, _ := processed.Exists("dim_date.csv")
		Expect(exists).To(BeTrue())
		keys, _ := processed.List(batch1 + "/")
		Expect(keys).To(HaveLen(6))
	})

	It("only transforms batches newer than the processed watermark", func() {
		put(batch1, "currency", currencyCSV)
		Expect(watermark.NewCompletedBatchTracker(log, processed).MarkComplete(batch1)).To(Succeed())
		put(batch2, "currency", "currency_id,currency_code,created_at,last_updated\n3,EUR,x,y\n")
		done, err := tr.TransformPending(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(done).To(Equal([]string{batch2}))
		done, err = tr.TransformPending(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(done).To(BeEmpty())
	})

	It("joins to lookups from earlier batches and re-emits rows affected by a lookup change", func() {
		put(batch1, "department", departmentCSV)
		put(batch1, "staff", staffCSV)
		Expect(watermark.NewCompletedBatchTracker(log, processed).MarkComplete(batch1)).To(Succeed())
		put(batch2, "department", "department_id,department_name,location,manager,created_at,last_updated\n"+
			"1,Sales,Leeds,Richard Roma,x,y\n")
		done, err := tr.TransformPending(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(done).To(Equal([]string{batch2}))
		staff := read(batch2, "dim_staff")
		Expect(staff).To(HaveLen(1))
		Expect(staff[0][0]).To(Equal("1"))
		Expect(staff[0][5]).To(Equal("Leeds"))
	})

	It("transforms a batch again when it was only partly written", func() {
		store := &failingStore{MemoryClient: processed, failOn: "fact_sales_order"}
		flaky, err := transform.NewTransformer(&transform.Config{
			Log:       log,
			Ingestion: ingestion,
			Processed: store,
			Registry:  registry,
			Stats:     stats.NewRunStats(log),
		})
		Expect(err).NotTo(HaveOccurred())
		put(batch1, "currency", currencyCSV)
		put(batch1, "sales_order", salesOrderCSV)

		done, err := flaky.TransformPending(ctx)
		Expect(err).To(HaveOccurred())
		Expect(done).To(BeEmpty())
		completed := watermark.NewCompletedBatchTracker(log, processed)
		ids, err := completed.BatchIDs()
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(BeEmpty())
		w, err := completed.GetWatermark()
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal(watermark.Epoch))

		store.failOn = ""
		done, err = flaky.TransformPending(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(done).To(Equal([]string{batch1}))
		Expect(read(batch1, "fact_sales_order")).To(HaveLen(2))
		Expect(read(batch1, "dim_currency")).To(HaveLen(2))
		ids, _ = completed.BatchIDs()
		Expect(ids).To(Equal([]string{batch1}))
	})

	It("marks batches without star rows complete", func() {
		put(batch1, "payment", "payment_id\n1\n")
		done, err := tr.TransformPending(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(done).To(Equal([]string{batch1}))
		keys, _ := processed.List(batch1 + "/")
		Expect(keys).To(BeEmpty())
		done, err = tr.TransformPending(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(done).To(BeEmpty())
	})

	It("transforms a single batch on request", func() {
		put(batch1, "address", addressCSV)
		Expect(tr.TransformBatch(ctx, batch1)).To(Succeed())
		Expect(read(batch1, "dim_location")).To(HaveLen(2))
		Expect(tr.TransformBatch(ctx, batch2)).NotTo(Succeed())
	})

	It("applies descriptor filters", func() {
		Expect(registry.LoadYAML([]byte(`
tables:
  - name: dim_currency
    columns: [currency_id, currency_code, currency_name]
    keyColumn: currency_id
    loadOrder: 10
    filter: {"!=": [{"var": "currency_name"}, ""]}
`))).To(Succeed())
		put(batch1, "currency", currencyCSV)
		_, err := tr.TransformPending(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(read(batch1, "dim_currency")).To(Equal([][]string{{"1", "GBP", "British Pound"}}))
	})

	It("rejects source files missing required columns", func() {
		put(batch1, "design", "design_id,design_name\n1,Wooden\n")
		_, err := tr.TransformPending(ctx)
		var sme *tabledefinition.SchemaMismatchError
		Expect(err).To(HaveOccurred())
		Expect(errors.As(err, &sme)).To(BeTrue())
		Expect(sme.Table).To(Equal("design"))
	})
})

var _ = Describe("GenerateDimDate", func() {
	It("covers 2020 to 2030 with Monday as day zero", func() {
		data, err := transform.DimDateSnapshot()
		Expect(err).NotTo(HaveOccurred())
		header, rows, err := file.ReadCSV(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(header).To(Equal(transform.DimDateColumns))
		Expect(rows).To(HaveLen(4018))
		Expect(rows[0]).To(Equal([]string{"2020-01-01", "2020", "1", "1", "2", "Wednesday", "January", "1"}))
		Expect(strings.Join(rows[len(rows)-1], ",")).To(Equal("2030-12-31,2030,12,31,1,Tuesday,December,4"))
	})
})

var _ = Describe("SplitTimestamp", func() {
	It("splits dates and times", func() {
		d, t := transform.SplitTimestamp("2022-11-03 14:20:52.186")
		Expect([]string{d, t}).To(Equal([]string{"2022-11-03", "14:20:52.186"}))
		d, t = transform.SplitTimestamp("2022-11-03")
		Expect([]string{d, t}).To(Equal([]string{"2022-11-03", "00:00:00"}))
	})
})
