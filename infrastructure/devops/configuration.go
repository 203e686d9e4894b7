package devops

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"ropeaccess.com/crewtrack/worksession/core"
	"ropeaccess.com/crewtrack/worksession/model"
)

// DBEntry is one crew company database.
type DBEntry struct {
	Name     string `yaml:"name"`
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// GetDSN renders a go-sql-driver DSN on dbname. An empty dbname connects
// without a default schema.
func (e DBEntry) GetDSN(dbname string) string {
	host := e.Host
	if !strings.Contains(host, ":") {
		host = host + ":3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", e.Username, e.Password, host, dbname)
}

type reasonFile struct {
	Reasons []model.ShortfallReason `yaml:"reasons"`
}

// ParameterGetter is the slice of the SSM client used here.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

func NewParameterGetter(ctx context.Context) (ParameterGetter, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return ssm.NewFromConfig(cfg), nil
}

func getParameter(ctx context.Context, client ParameterGetter, name string) ([]byte, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, fmt.Errorf("parameter %s has no value", name)
	}
	return []byte(*out.Parameter.Value), nil
}

// LoadDBConfig reads the YAML database list stored in paramName.
func LoadDBConfig(ctx context.Context, client ParameterGetter, paramName string) ([]DBEntry, error) {
	raw, err := getParameter(ctx, client, paramName)
	if err != nil {
		return nil, err
	}
	return ParseDBConfig(raw)
}

// FindDBEntry picks the entry named env, ignoring case.
func FindDBEntry(entries []DBEntry, env string) (DBEntry, bool) {
	for _, e := range entries {
		if strings.EqualFold(e.Name, env) {
			return e, true
		}
	}
	return DBEntry{}, false
}

func ParseDBConfig(raw []byte) ([]DBEntry, error) {
	var parsed []DBEntry
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	return parsed, nil
}

// ParseReasonCatalog reads
//
//	reasons:
//	  - code: weather
//	    label: Weather
func ParseReasonCatalog(raw []byte) (*core.ReasonCatalog, error) {
	var parsed reasonFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal reason catalog: %w", err)
	}
	if len(parsed.Reasons) == 0 {
		return nil, fmt.Errorf("reason catalog is empty")
	}
	return core.NewReasonCatalog(parsed.Reasons), nil
}

// LoadReasonCatalog prefers file, then the SSM parameter, then the built-in
// catalog. client is only used when param is set.
func LoadReasonCatalog(ctx context.Context, file, param string, client ParameterGetter) (*core.ReasonCatalog, error) {
	switch {
	case file != "":
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read reason catalog %s: %w", file, err)
		}
		return ParseReasonCatalog(raw)
	case param != "":
		if client == nil {
			return nil, fmt.Errorf("no parameter client for %s", param)
		}
		raw, err := getParameter(ctx, client, param)
		if err != nil {
			return nil, err
		}
		return ParseReasonCatalog(raw)
	}
	return core.DefaultReasonCatalog(), nil
}
