package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"media-picker/internal/cache"
	"media-picker/internal/extract"
	"media-picker/internal/logging"
	"media-picker/internal/mediatypes"
	"media-picker/internal/normalize"
	"media-picker/internal/repository"
	"media-picker/internal/resolver"
)

var tracer = otel.Tracer("media-picker/pipeline")

// Pipeline turns references into records: materialize, resolve the MIME
// type, normalize, extract, assemble.
type Pipeline struct {
	materializer *cache.Materializer
	resolver     *resolver.Resolver
	normalizer   *normalize.Normalizer
	extractor    *extract.Extractor
}

// New assembles a Pipeline from its stages.
func New(m *cache.Materializer, r *resolver.Resolver, n *normalize.Normalizer, e *extract.Extractor) *Pipeline {
	return &Pipeline{materializer: m, resolver: r, normalizer: n, extractor: e}
}

// Materializer returns the cache stage.
func (p *Pipeline) Materializer() *cache.Materializer {
	return p.materializer
}

// Process runs one reference through every stage. ordinal positions the
// item in the cache namespace and becomes the record's index. On failure
// the cause is added to log and nil is returned.
func (p *Pipeline) Process(ctx context.Context, ref repository.Reference, ordinal int, log *ErrorLog) (rec *MediaRecord) {
	ctx, span := tracer.Start(ctx, "pipeline.Process")
	span.SetAttributes(
		attribute.String("media.uri", ref.URI),
		attribute.Int("media.ordinal", ordinal),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("Unexpected error: %v", r)
			logging.Error("pipeline panic on %s: %v", ref, r)
			span.SetStatus(codes.Error, msg)
			log.Add(msg)
			rec = nil
		}
	}()

	entry, err := p.materializer.Materialize(ctx, ref, ordinal)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "copy failed")
		log.Add(fmt.Sprintf("Item %d copy error: %v", ordinal, err))
		return nil
	}

	mime := p.resolver.Resolve(entry.DeclaredMime, entry.Path, entry.Ext)

	entry, mime, err = p.normalizer.Normalize(ctx, entry, mime)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "conversion failed")
		log.Add(fmt.Sprintf("HEIC conversion error: %v", err))
		return nil
	}

	rec = &MediaRecord{
		ID:       entry.Hash,
		Index:    ordinal,
		URI:      entry.URI(),
		FileName: entry.FileName,
		FileSize: entry.Size,
		MimeType: mime,
		Type:     mediatypes.FileTypeForMime(mime),
	}
	rec.Merge(p.extractor.Extract(ctx, entry, mime))

	span.SetAttributes(attribute.String("media.mime", mime))
	return rec
}

// ProcessAll runs refs in order, numbering them from base. Records keep the
// order of refs; failed items are absent and reported in the returned log.
func (p *Pipeline) ProcessAll(ctx context.Context, refs []repository.Reference, base int) ([]MediaRecord, *ErrorLog) {
	log := &ErrorLog{}
	records := make([]MediaRecord, 0, len(refs))
	for i, ref := range refs {
		if rec := p.Process(ctx, ref, base+i, log); rec != nil {
			records = append(records, *rec)
		}
	}
	return records, log
}
