package output

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shii9/SurfaceNio/internal/model"
)

// HostRow is one flattened record. Rows from every run accumulate in the
// same table, told apart by RunID.
type HostRow struct {
	ID              uint      `gorm:"primaryKey"`
	RunID           string    `gorm:"column:run_id;index"`
	DomainInput     string    `gorm:"column:domain_input;index"`
	Subdomain       string    `gorm:"column:subdomain"`
	A               string    `gorm:"column:a"`
	AAAA            string    `gorm:"column:aaaa"`
	HTTPAlive       bool      `gorm:"column:http_alive"`
	HTTPStatus      *int      `gorm:"column:http_status"`
	HTTPSAlive      bool      `gorm:"column:https_alive"`
	HTTPSStatus     *int      `gorm:"column:https_status"`
	FinalURL        string    `gorm:"column:final_url"`
	Title           string    `gorm:"column:title"`
	Server          string    `gorm:"column:server"`
	TLSDaysToExpire *int      `gorm:"column:tls_days_to_expire"`
	Tags            string    `gorm:"column:tags"`
	Timestamp       time.Time `gorm:"column:timestamp"`
}

func (HostRow) TableName() string { return "host_rows" }

func newHostRow(runID string, rec model.HostRecord) HostRow {
	h := rec.HTTP
	row := HostRow{
		RunID:       runID,
		DomainInput: rec.DomainInput,
		Subdomain:   rec.Subdomain,
		A:           strings.Join(rec.DNS.IPv4, ";"),
		AAAA:        strings.Join(rec.DNS.IPv6, ";"),
		HTTPAlive:   h.HTTP.Alive,
		HTTPStatus:  h.HTTP.Status,
		HTTPSAlive:  h.HTTPS.Alive,
		HTTPSStatus: h.HTTPS.Status,
		FinalURL:    h.PreferredFinalURL(),
		Title:       h.PreferredTitle(),
		Server:      h.Server(),
		Tags:        strings.Join(rec.Tags, ","),
		Timestamp:   rec.Timestamp.UTC(),
	}
	if days, ok := h.TLSDaysToExpire(); ok {
		row.TLSDaysToExpire = model.Int(days)
	}
	return row
}

type SQLiteWriter struct {
	RunID string
}

func (w SQLiteWriter) Write(path string, records []model.HostRecord) error {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := db.AutoMigrate(&HostRow{}); err != nil {
		return errors.Wrap(err, "migrate")
	}
	if len(records) == 0 {
		return nil
	}

	rows := make([]HostRow, len(records))
	for i, rec := range records {
		rows[i] = newHostRow(w.RunID, rec)
	}
	return db.CreateInBatches(rows, 500).Error
}
