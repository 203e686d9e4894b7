package helper

import (
	"context"
	"fmt"
	"log"

	"ropeaccess.com/crewtrack/infrastructure/communication"
)

type fileWriter interface {
	WriteFile(ctx context.Context, key, contentType string, data []byte) error
}

type mailSender interface {
	Send(ctx context.Context, email *communication.Email) (string, error)
}

// Publisher delivers a finished report. Any destination left nil is skipped.
type Publisher struct {
	Bucket   fileWriter
	Notifier communication.Notifier
	Mailer   mailSender
	From     string
	To       []string
}

func ReportKey(workDate string) string {
	return fmt.Sprintf("shortfalls/%s.xlsx", workDate)
}

// Publish uploads the workbook, posts the summary and emails it. It returns the
// object key when the upload ran.
func (p *Publisher) Publish(ctx context.Context, reports []ProjectReport, workDate string) (string, error) {
	workbook, err := BuildWorkbook(reports)
	if err != nil {
		return "", err
	}
	text := SummaryText(reports, workDate)

	var key string
	if p.Bucket != nil {
		key = ReportKey(workDate)
		if err := p.Bucket.WriteFile(ctx, key, ContentTypeXLSX, workbook); err != nil {
			return "", err
		}
		log.Printf("[INFO] uploaded %s (%d bytes)\n", key, len(workbook))
	}

	if p.Notifier != nil {
		if err := p.Notifier.Info(text); err != nil {
			log.Printf("[WARN] %v\n", err)
		}
	}

	if p.Mailer != nil && p.From != "" && len(p.To) > 0 {
		id, err := p.Mailer.Send(ctx, &communication.Email{
			From:    p.From,
			To:      p.To,
			Subject: fmt.Sprintf("Shortfall report %s", workDate),
			Text:    text,
			Attachments: []communication.Attachment{{
				Filename:    fmt.Sprintf("shortfalls-%s.xlsx", workDate),
				ContentType: ContentTypeXLSX,
				Content:     workbook,
			}},
		})
		if err != nil {
			return key, err
		}
		log.Printf("[INFO] report emailed to %d recipient(s), message id %s\n", len(p.To), id)
	}

	return key, nil
}
