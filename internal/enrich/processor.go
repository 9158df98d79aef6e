package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/postal-enrich/internal/model"
)

// Resolver maps a ZIP code to "City District" labels.
type Resolver interface {
	Resolve(ctx context.Context, zip string) ([]string, error)
}

// Enricher finds emails for a name and address.
type Enricher interface {
	Enrich(ctx context.Context, name, address string) model.Outcome
}

// Processor expands one input record into output rows, one per city
// candidate.
type Processor struct {
	resolver Resolver
	enricher Enricher
	log      *zap.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(resolver Resolver, enricher Enricher, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{resolver: resolver, enricher: enricher, log: logger}
}

// Process resolves the record's ZIP and enriches every city candidate in
// order. The full name is tried first; the reduced name only when the full
// name produced no emails.
//
// Any unrecovered failure stops the record: rows already built are kept, one
// ERROR row carrying the city being worked on (empty when the ZIP itself
// failed) is appended, and the failure is returned alongside the rows.
func (p *Processor) Process(ctx context.Context, rec model.InputRecord) ([]model.OutputRow, error) {
	log := p.log.With(zap.String("record", rec.String()))
	log.Info("scraping record")

	labels, err := p.resolver.Resolve(ctx, rec.ZIP)
	if err != nil {
		log.Error("zip resolution failed", zap.String("step", "resolve_zip"), zap.Error(err))
		return []model.OutputRow{errorRow(rec, model.CityCandidate{})}, err
	}
	if len(labels) == 0 {
		log.Warn("zip resolved to no cities")
	}

	rows := make([]model.OutputRow, 0, len(labels))
	for _, label := range labels {
		city := model.ParseCityCandidate(label)
		address := city.Address(rec.ZIP)
		clog := log.With(zap.String("city", label))

		out := p.enricher.Enrich(ctx, rec.FullName(), address)
		if out.Kind == model.OutcomeFailed {
			clog.Error("enrichment failed", zap.String("step", "enrich_full_name"), zap.Error(out.Err))
			return append(rows, errorRow(rec, city)), out.Err
		}

		if !out.HasEmails() && rec.ReducedName() != rec.FullName() {
			clog.Info("retrying with reduced name", zap.String("name", rec.ReducedName()))
			out = p.enricher.Enrich(ctx, rec.ReducedName(), address)
			if out.Kind == model.OutcomeFailed {
				clog.Error("enrichment failed", zap.String("step", "enrich_reduced_name"), zap.Error(out.Err))
				return append(rows, errorRow(rec, city)), out.Err
			}
		}

		row := model.NewOutputRow(rec, city, model.StatusSuccess)
		row.Emails = []string{}
		if out.HasEmails() {
			row.Emails = out.Emails
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func errorRow(rec model.InputRecord, city model.CityCandidate) model.OutputRow {
	row := model.NewOutputRow(rec, city, model.StatusError)
	row.Emails = []string{}
	return row
}
