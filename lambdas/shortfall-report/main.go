package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"gorm.io/gorm"
	"ropeaccess.com/crewtrack/config"
	"ropeaccess.com/crewtrack/core"
	"ropeaccess.com/crewtrack/infrastructure/communication"
	"ropeaccess.com/crewtrack/infrastructure/devops"
	"ropeaccess.com/crewtrack/infrastructure/filesystem"
	"ropeaccess.com/crewtrack/lambdas/shortfall-report/helper"
	crew "ropeaccess.com/crewtrack/worksession/core"
	"ropeaccess.com/crewtrack/worksession/store"
)

type ReportEvent struct {
	Databases *[]string `json:"databases"`
	Env       string    `json:"env"`
	// WorkDate defaults to yesterday in UTC.
	WorkDate string `json:"workDate"`
}

type ReportResult struct {
	WorkDate string                `json:"workDate"`
	Projects int                   `json:"projects"`
	Summary  crew.ShortfallSummary `json:"summary"`
	Key      string                `json:"key,omitempty"`
}

func GenerateReport(ctx context.Context, cfg *config.Config, dsn string, event ReportEvent, params devops.ParameterGetter) (*ReportResult, error) {
	catalog, err := devops.LoadReasonCatalog(ctx, cfg.ReasonCatalogFile, cfg.ReasonCatalogParam, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load reason catalog: %w", err)
	}

	dm, err := core.New(dsn, cfg.MaxConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dm.Close()
	dm.LogLevel = core.ParseLogLevel(cfg.DBLogLevel)

	var targetDatabases []string
	if event.Databases == nil {
		log.Printf("[INFO] No databases provided, fetching all databases...\n")
		targetDatabases, err = dm.GetAllDatabases(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get all databases: %w", err)
		}
	} else {
		targetDatabases = *event.Databases
	}

	var reports []helper.ProjectReport
	for _, dbName := range targetDatabases {
		log.Printf("[INFO] Classifying sessions for database: %s\n", dbName)
		err := dm.Exec(ctx, dbName, func(db *gorm.DB) error {
			projects, err := helper.LoadProjects(ctx, db)
			if err != nil {
				return err
			}
			manager := crew.NewManager(store.NewGormStore(db), catalog)
			found, err := helper.CollectReports(ctx, manager, dbName, projects, event.WorkDate)
			if err != nil {
				return err
			}
			reports = append(reports, found...)
			return nil
		})
		if err != nil {
			log.Printf("[ERROR] failed to classify sessions for database %s: %v\n", dbName, err)
			continue
		}
	}

	publisher := helper.Publisher{
		Notifier: communication.ConnectSlack(cfg),
		From:     cfg.ReportEmailFrom,
		To:       cfg.ReportEmailTo,
	}
	if cfg.ReportBucket != "" {
		bucket, err := filesystem.ConnectBucket(ctx, cfg.ReportBucket)
		if err != nil {
			return nil, err
		}
		publisher.Bucket = bucket
	}
	if cfg.ReportEmailFrom != "" && len(cfg.ReportEmailTo) > 0 {
		mailer, err := communication.ConnectMailer(ctx)
		if err != nil {
			return nil, err
		}
		publisher.Mailer = mailer
	}

	key, err := publisher.Publish(ctx, reports, event.WorkDate)
	if err != nil {
		return nil, err
	}

	return &ReportResult{
		WorkDate: event.WorkDate,
		Projects: len(reports),
		Summary:  helper.Totals(reports),
		Key:      key,
	}, nil
}

func HandleRequest(ctx context.Context, event ReportEvent) (*ReportResult, error) {
	eventJson, _ := json.Marshal(event)
	log.Printf("[INFO] Event: %s\n", string(eventJson))

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	notifier := communication.ConnectSlack(cfg)

	result, err := run(ctx, cfg, event)
	if err != nil {
		if postErr := notifier.Error(fmt.Sprintf("shortfall report failed: %v", err)); postErr != nil {
			log.Printf("[WARN] %v\n", postErr)
		}
		return nil, err
	}
	return result, nil
}

func run(ctx context.Context, cfg *config.Config, event ReportEvent) (*ReportResult, error) {
	if event.WorkDate == "" {
		event.WorkDate = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", event.WorkDate); err != nil {
		return nil, fmt.Errorf("workDate must be yyyy-MM-dd: %w", err)
	}

	params, err := devops.NewParameterGetter(ctx)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if event.Env != "" {
		log.Printf("[INFO] Loading database configuration from SSM parameter store '%s'\n", cfg.DatabasesParam)
		entries, err := devops.LoadDBConfig(ctx, params, cfg.DatabasesParam)
		if err != nil {
			return nil, fmt.Errorf("failed to load databases from SSM: %w", err)
		}
		entry, ok := devops.FindDBEntry(entries, event.Env)
		if !ok {
			return nil, fmt.Errorf("environment '%s' not found in parameter store", event.Env)
		}
		dsn = entry.GetDSN("")
	}
	if dsn == "" {
		return nil, fmt.Errorf("DSN or env is required")
	}

	return GenerateReport(ctx, cfg, dsn, event, params)
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(HandleRequest)
		return
	}

	config.LoadEnv()
	event := ReportEvent{Env: os.Getenv("REPORT_ENV")}
	if len(os.Args) > 1 {
		event.WorkDate = os.Args[1]
	}
	if dbs := os.Getenv("REPORT_DATABASES"); dbs != "" {
		list := strings.Split(dbs, ",")
		event.Databases = &list
	}

	result, err := HandleRequest(context.Background(), event)
	if err != nil {
		log.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}
	resJson, _ := json.MarshalIndent(result, "", "  ")
	log.Printf("[SUCCESS] Results:\n%s\n", string(resJson))
}
