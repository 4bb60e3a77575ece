// Package export renders the result store as spreadsheet files
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/cardreader/internal/backend/database"
)

const (
	// AttachmentPrefix starts every downloaded file name ("card records")
	AttachmentPrefix = "名片記錄"

	registeredAtLayout = "2006-01-02 15:04:05"
	attachmentLayout   = "20060102_150405"
)

// Header is the first row of every export
var Header = []string{"單位名稱", "姓名", "地址", "電話", "電子郵件", "備註", "登記時間"}

// Row flattens a record into the export columns
func Row(record database.Record) []string {
	a := record.Analyzed
	return []string{a.Company, a.Name, a.Address, a.Phone, a.Email, a.Notes, registeredAt(record)}
}

// registeredAt formats the record timestamp; unparsable values are kept as is
func registeredAt(record database.Record) string {
	t, err := record.RegisteredAt()
	if err != nil {
		slog.Warn("exporting record with unparsable timestamp", "timestamp", record.Timestamp, "error", err)
		return record.Timestamp
	}
	return t.Format(registeredAtLayout)
}

// AttachmentName returns the download name for an export created at now
func AttachmentName(now time.Time, extension string) string {
	return fmt.Sprintf("%s_%s.%s", AttachmentPrefix, now.Format(attachmentLayout), extension)
}
