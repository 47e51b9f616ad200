package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/stockrag/internal/util"
	"github.com/OFFIS-RIT/stockrag/pkg/ai"
	"github.com/OFFIS-RIT/stockrag/pkg/common"
	"github.com/OFFIS-RIT/stockrag/pkg/loader"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"
	"github.com/OFFIS-RIT/stockrag/pkg/metrics"
	"github.com/OFFIS-RIT/stockrag/pkg/schema"

	"github.com/go-playground/validator"
	"golang.org/x/sync/errgroup"
)

type extractResponse struct {
	Triplets []common.Triplet `json:"triplets" jsonschema_description:"Triplets found in the text that conform to the schema"`
}

// RejectedTriplet is a triplet that failed validation together with the
// reason.
type RejectedTriplet struct {
	Triplet common.Triplet `json:"triplet"`
	Reason  string         `json:"reason"`
}

// ExtractResult is the outcome of extracting one file.
type ExtractResult struct {
	Units    []common.Unit     `json:"units"`
	Accepted []common.Triplet  `json:"accepted"`
	Rejected []RejectedTriplet `json:"rejected"`
}

// NewExtractorParams configure an Extractor.
//
// In strict mode triplets that do not conform to the schema are dropped. In
// lenient mode they are kept and logged. Triplets with missing fields are
// always dropped.
type NewExtractorParams struct {
	Client     ai.GraphAIClient
	Encoder    string
	Parallel   int
	MaxRetries int
	Strict     bool
}

// Extractor turns documents into schema-typed triplets with an llm.
type Extractor struct {
	client     ai.GraphAIClient
	encoder    string
	parallel   int
	maxRetries int
	strict     bool
	validate   *validator.Validate
}

func NewExtractor(params NewExtractorParams) *Extractor {
	parallel := params.Parallel
	if parallel <= 0 {
		parallel = 1
	}
	retries := params.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	encoder := params.Encoder
	if encoder == "" {
		encoder = DefaultEncoder
	}

	return &Extractor{
		client:     params.Client,
		encoder:    encoder,
		parallel:   parallel,
		maxRetries: retries,
		strict:     params.Strict,
		validate:   validator.New(),
	}
}

// ExtractPrompt renders the extraction prompt for text from documentName.
func ExtractPrompt(documentName, text string) string {
	entities := schema.EntityTypes()
	entityNames := make([]string, len(entities))
	var mapping strings.Builder
	for i, et := range entities {
		entityNames[i] = string(et)
		rels := schema.AllowedRelations(et)
		names := make([]string, len(rels))
		for j, r := range rels {
			names[j] = string(r)
		}
		fmt.Fprintf(&mapping, "  - %s: %s\n", et, strings.Join(names, ", "))
	}

	relations := schema.RelationTypes()
	relationNames := make([]string, len(relations))
	for i, r := range relations {
		relationNames[i] = string(r)
	}

	return fmt.Sprintf(
		ai.ExtractPrompt,
		strings.Join(entityNames, ", "),
		strings.Join(relationNames, ", "),
		strings.TrimRight(mapping.String(), "\n"),
		documentName,
		text,
	)
}

// ExtractUnit asks the llm for the triplets of one unit and validates them.
func (e *Extractor) ExtractUnit(
	ctx context.Context,
	unit common.Unit,
	documentName string,
) ([]common.Triplet, []RejectedTriplet, error) {
	if e.client == nil {
		return nil, nil, ErrNoLLM
	}

	var res extractResponse
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"extract_triplets",
		"Extract schema-typed knowledge graph triplets from a document.",
		ExtractPrompt(documentName, unit.Text),
		&res,
	)
	if err != nil {
		return nil, nil, err
	}

	accepted, rejected := e.Screen(res.Triplets)
	return accepted, rejected, nil
}

// Screen splits triplets into accepted and rejected ones. Triplets with
// missing fields are always rejected; schema violations only in strict mode.
func (e *Extractor) Screen(triplets []common.Triplet) ([]common.Triplet, []RejectedTriplet) {
	accepted := make([]common.Triplet, 0, len(triplets))
	var rejected []RejectedTriplet
	for _, t := range triplets {
		if err := e.validate.Struct(t); err != nil {
			rejected = append(rejected, RejectedTriplet{Triplet: t, Reason: err.Error()})
			continue
		}
		if err := schema.ValidateTriplet(t.HeadType, t.Relation, t.TailType); err != nil {
			if e.strict {
				rejected = append(rejected, RejectedTriplet{Triplet: t, Reason: err.Error()})
				continue
			}
			logger.Warn("[Extract] Triplet does not conform to schema", "head", t.Head, "relation", t.Relation, "tail", t.Tail, "err", err)
		}
		accepted = append(accepted, t)
	}
	return accepted, rejected
}

// ExtractFile splits file into units and extracts every unit in parallel.
// Each unit is retried up to MaxRetries times. The first failing unit
// cancels the others.
func (e *Extractor) ExtractFile(ctx context.Context, file loader.GraphFile) (*ExtractResult, error) {
	units, err := GetUnits(ctx, file, e.encoder)
	if err != nil {
		return nil, fmt.Errorf("failed to split %s into units: %w", file.DisplayName(), err)
	}

	type unitResult struct {
		accepted []common.Triplet
		rejected []RejectedTriplet
	}
	results := make([]unitResult, len(units))
	name := file.DisplayName()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallel)
	for i, unit := range units {
		g.Go(func() error {
			res, err := util.RetryWithContext(gCtx, e.maxRetries, func(ctx context.Context) (unitResult, error) {
				a, r, err := e.ExtractUnit(ctx, unit, name)
				return unitResult{accepted: a, rejected: r}, err
			})
			if err != nil {
				return fmt.Errorf("failed to extract unit %d of %s: %w", i, name, err)
			}
			results[i] = res
			metrics.UnitsProcessed.Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &ExtractResult{Units: units}
	for _, r := range results {
		out.Accepted = append(out.Accepted, r.accepted...)
		out.Rejected = append(out.Rejected, r.rejected...)
	}
	metrics.ObserveTriplets(len(out.Accepted), len(out.Rejected))
	logger.Info("[Extract] Extracted file", "file", name, "units", len(units), "accepted", len(out.Accepted), "rejected", len(out.Rejected))
	return out, nil
}
