// Package application drives patch-level stiffness distributions through a
// configured pipeline of aggregation layers to a single scalar.
package application

import (
	"context"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-stiffness/internal/domain"
	"github.com/ahrav/go-stiffness/internal/ports"
)

// MaxLayers is the maximum number of aggregation layers in a pipeline:
// receiver-patch, section-to-section, sections-to-section, and
// sections-to-sections.
const MaxLayers = 4

// Calculator reduces raw patch-to-patch stiffness interactions to a single
// aggregate scalar through 1 to 4 layers of aggregation. Layer 0 aggregates
// patches within one source/receiver section pair, layer 1 aggregates across
// that pair, layer 2 across multiple source sections, and layer 3 across
// multiple receiver sections. Each layer either terminates the pipeline with
// a scalar or reshapes its distributions for the next layer; the final layer
// is always terminal.
//
// A Calculator is immutable after construction and safe for concurrent use
// as long as its model and cache collaborators are.
type Calculator struct {
	typ             domain.StiffnessType
	model           ports.StiffnessModel
	layers          []domain.AggregationMethod
	allowSectToSelf bool

	// cache and the patch ID key space are derived eagerly at construction
	// so no guarded lazy initialization is needed afterwards.
	cache             ports.AggregationCache
	patchIDMultiplier int
	patchIDOffset     int

	// build collapses concurrent computations of the same section-level
	// aggregation vector; duplicate inserts would be harmless but wasted.
	build singleflight.Group
}

var _ ports.ScalarCalculator = (*Calculator)(nil)

// NewCalculator builds a Calculator for the given stiffness type, model, and
// aggregation layers. At least one and at most MaxLayers layers must be
// supplied, every layer must be a known aggregation method, and the final
// layer must be terminal. When allowSectToSelf is true, calculations between
// the same source and receiver section are included; the interaction of a
// patch with itself is always excluded regardless.
func NewCalculator(
	typ domain.StiffnessType,
	model ports.StiffnessModel,
	allowSectToSelf bool,
	layers ...domain.AggregationMethod,
) (*Calculator, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: stiffness model is nil", domain.ErrInvalidPipeline)
	}
	if err := validateLayers(layers); err != nil {
		return nil, err
	}
	numSects := model.SectionCount()
	if numSects <= 0 {
		return nil, fmt.Errorf("%w: model reports %d sections", domain.ErrInvalidPipeline, numSects)
	}

	c := &Calculator{
		typ:             typ,
		model:           model,
		layers:          append([]domain.AggregationMethod(nil), layers...),
		allowSectToSelf: allowSectToSelf,
		cache:           model.AggregationCache(typ),
		// Section IDs are multiplied into disjoint ranges of the int32 key
		// space; patch indices are added within a range. The offset keeps
		// patch IDs clear of plain section IDs.
		patchIDMultiplier: math.MaxInt32 / numSects,
		patchIDOffset:     numSects,
	}
	return c, nil
}

func validateLayers(layers []domain.AggregationMethod) error {
	if len(layers) == 0 {
		return fmt.Errorf("%w: must supply at least 1 aggregation layer", domain.ErrInvalidPipeline)
	}
	if len(layers) > MaxLayers {
		return fmt.Errorf("%w: only %d aggregation layers are possible, got %d",
			domain.ErrInvalidPipeline, MaxLayers, len(layers))
	}
	for i, layer := range layers {
		if !layer.Valid() {
			return fmt.Errorf("%w: layer at level %d is not a valid method", domain.ErrInvalidPipeline, i)
		}
	}
	if last := layers[len(layers)-1]; !last.IsTerminal() {
		return fmt.Errorf("%w: final layer must be terminal, got %s", domain.ErrInvalidPipeline, last)
	}
	return nil
}

// uniquePatchID derives a cache/grouping key for one receiver patch that
// cannot collide with any other (section, patch) pair or plain section ID.
func (c *Calculator) uniquePatchID(sectID, patchIndex int) (int, error) {
	if patchIndex >= c.patchIDMultiplier-1 {
		return 0, fmt.Errorf("%w: patch index %d with multiplier %d",
			domain.ErrPatchIDOverflow, patchIndex, c.patchIDMultiplier)
	}
	return c.patchIDOffset + sectID*c.patchIDMultiplier + patchIndex, nil
}

// aggReceiverPatches fetches the raw patch matrix for one source/receiver
// pair and applies the layer-0 aggregation across each receiver patch row.
// When layer 0 is terminal the result is cached per (method, source,
// receiver) and a hit skips extraction entirely.
func (c *Calculator) aggReceiverPatches(ctx context.Context, source, receiver ports.Section) ([]domain.Distribution, error) {
	sourceID := source.SectionID()
	receiverID := receiver.SectionID()
	if !c.allowSectToSelf && sourceID == receiverID {
		return nil, fmt.Errorf("%w: section %d with sect-to-self disallowed", domain.ErrSelfSection, sourceID)
	}

	cacheable := c.cache != nil && c.layers[0].IsTerminal()
	if cacheable {
		if cached, ok := c.cache.PatchAggregated(c.layers[0], sourceID, receiverID); ok {
			return cached, nil
		}
	}

	matrix, err := c.model.PatchInteractions(ctx, source, receiver, c.typ)
	if err != nil {
		return nil, fmt.Errorf("patch interactions %d -> %d: %w", sourceID, receiverID, err)
	}

	sameSect := sourceID == receiverID
	receiverDists := make([]domain.Distribution, len(matrix))
	for r, row := range matrix {
		values := row
		if sameSect {
			// A patch's interaction with itself is physically meaningless
			// and always excluded from its own distribution.
			if len(row) != len(matrix) {
				return nil, fmt.Errorf("self-pair matrix for section %d is %dx%d, want square",
					sourceID, len(matrix), len(row))
			}
			values = make([]float64, 0, len(row)-1)
			values = append(values, row[:r]...)
			values = append(values, row[r+1:]...)
		}
		patchID, err := c.uniquePatchID(receiverID, r)
		if err != nil {
			return nil, err
		}
		receiverDists[r] = domain.Distribution{
			ReceiverID:        patchID,
			Values:            values,
			TotalInteractions: len(values),
		}
	}

	aggregated, err := c.layers[0].Aggregate(receiverID, receiverDists)
	if err != nil {
		return nil, fmt.Errorf("patch aggregation %d -> %d: %w", sourceID, receiverID, err)
	}
	if cacheable {
		c.cache.PutPatchAggregated(c.layers[0], sourceID, receiverID, aggregated)
	}
	return aggregated, nil
}

// sectToSectCacheable reports whether the section-to-section result can be
// served from an AggregationVector: layer 1 must be terminal and layer 0
// either terminal or a plain flatten, so the flattened patch-layer output
// fully determines every terminal statistic at this level.
func (c *Calculator) sectToSectCacheable() bool {
	return c.cache != nil && len(c.layers) > 1 && c.layers[1].IsTerminal() &&
		(c.layers[0].IsTerminal() || c.layers[0] == domain.MethodFlatten)
}

// cachedSectToSect looks up or builds the aggregation vector for one pair.
// The key includes the patch-level method (or MethodNone for flatten) so that
// differently configured patch layers never share an entry. Concurrent
// builds of the same key are collapsed.
func (c *Calculator) cachedSectToSect(ctx context.Context, source, receiver ports.Section) (*domain.AggregationVector, error) {
	patchMethod := domain.MethodNone
	if c.layers[0].IsTerminal() {
		patchMethod = c.layers[0]
	}
	sourceID := source.SectionID()
	receiverID := receiver.SectionID()

	if agg, ok := c.cache.SectAggregated(patchMethod, sourceID, receiverID); ok {
		return agg, nil
	}

	key := fmt.Sprintf("%d:%d:%d", patchMethod, sourceID, receiverID)
	v, err, _ := c.build.Do(key, func() (any, error) {
		if agg, ok := c.cache.SectAggregated(patchMethod, sourceID, receiverID); ok {
			return agg, nil
		}
		patchDists, err := c.aggReceiverPatches(ctx, source, receiver)
		if err != nil {
			return nil, err
		}
		flat, err := domain.FlattenDistributions(receiverID, patchDists)
		if err != nil {
			return nil, err
		}
		agg, err := domain.NewAggregationVector(flat.Values, flat.TotalInteractions)
		if err != nil {
			return nil, err
		}
		c.cache.PutSectAggregated(patchMethod, sourceID, receiverID, agg)
		return agg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.AggregationVector), nil
}

// aggSectToSect produces the layer-1 output distributions for one pair.
func (c *Calculator) aggSectToSect(ctx context.Context, source, receiver ports.Section) ([]domain.Distribution, error) {
	sourceID := source.SectionID()
	receiverID := receiver.SectionID()
	if !c.allowSectToSelf && sourceID == receiverID {
		return nil, fmt.Errorf("%w: section %d with sect-to-self disallowed", domain.ErrSelfSection, sourceID)
	}
	if len(c.layers) < 2 {
		return nil, fmt.Errorf("%w: section-to-section aggregation layer not supplied", domain.ErrPipelineDepth)
	}

	if c.sectToSectCacheable() {
		agg, err := c.cachedSectToSect(ctx, source, receiver)
		if err != nil {
			return nil, err
		}
		val, err := agg.Get(c.layers[1])
		if err != nil {
			return nil, err
		}
		count, err := agg.Get(domain.MethodCount)
		if err != nil {
			return nil, err
		}
		return []domain.Distribution{domain.NewDistribution(receiverID, int(count), val)}, nil
	}

	patchDists, err := c.aggReceiverPatches(ctx, source, receiver)
	if err != nil {
		return nil, err
	}
	aggregated, err := c.layers[1].Aggregate(receiverID, patchDists)
	if err != nil {
		return nil, fmt.Errorf("sect-to-sect aggregation %d -> %d: %w", sourceID, receiverID, err)
	}
	return aggregated, nil
}

// processUntilTerminal drives distributions through the remaining layers
// until a terminal layer reduces them to a scalar. Every layer past the
// first recursion step aggregates under the -1 identifier, since receivers
// may be plural from there on.
func (c *Calculator) processUntilTerminal(layer, receiverID int, dists []domain.Distribution) (float64, error) {
	if layer >= len(c.layers) {
		return 0, fmt.Errorf("%w: no terminal layer reached at depth %d", domain.ErrPipelineDepth, layer)
	}
	method := c.layers[layer]
	if method.IsTerminal() {
		return method.Get(dists)
	}
	next, err := method.Aggregate(receiverID, dists)
	if err != nil {
		return 0, fmt.Errorf("layer %d (%s): %w", layer, method, err)
	}
	return c.processUntilTerminal(layer+1, -1, next)
}

// SectToSect computes the aggregate scalar for one source section acting on
// one receiver section. The pipeline must have at least two layers.
func (c *Calculator) SectToSect(ctx context.Context, source, receiver ports.Section) (float64, error) {
	if len(c.layers) < 2 {
		return 0, fmt.Errorf("%w: section-to-section aggregation layer not supplied", domain.ErrPipelineDepth)
	}
	sourceID := source.SectionID()
	if !c.allowSectToSelf && sourceID == receiver.SectionID() {
		return 0, fmt.Errorf("%w: section %d with sect-to-self disallowed", domain.ErrSelfSection, sourceID)
	}

	if c.sectToSectCacheable() {
		agg, err := c.cachedSectToSect(ctx, source, receiver)
		if err != nil {
			return 0, err
		}
		return agg.Get(c.layers[1])
	}

	patchDists, err := c.aggReceiverPatches(ctx, source, receiver)
	if err != nil {
		return 0, err
	}
	return c.processUntilTerminal(1, receiver.SectionID(), patchDists)
}

// collectSectsToSect accumulates the layer-1 output of every source against
// one receiver. Sources equal to the receiver are filtered out unless
// sect-to-self is allowed; filtering must not empty the source list. The
// accumulation starts as a dense one-distribution-per-source array and
// switches to an append-only list the moment any pair fans out.
func (c *Calculator) collectSectsToSect(ctx context.Context, sources []ports.Section, receiver ports.Section) ([]domain.Distribution, error) {
	receiverID := receiver.SectionID()
	if !c.allowSectToSelf {
		filtered := make([]ports.Section, 0, len(sources))
		for _, source := range sources {
			if source.SectionID() != receiverID {
				filtered = append(filtered, source)
			}
		}
		sources = filtered
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: receiver %d", domain.ErrNoSources, receiverID)
	}

	receiverSectDists := make([]domain.Distribution, len(sources))
	var distsList []domain.Distribution
	for s, source := range sources {
		aggregated, err := c.aggSectToSect(ctx, source, receiver)
		if err != nil {
			return nil, err
		}
		switch {
		case distsList != nil:
			distsList = append(distsList, aggregated...)
		case len(aggregated) != 1:
			// Not 1-to-1 after all; migrate what was already accumulated.
			distsList = make([]domain.Distribution, 0, len(sources)*max(1, len(aggregated)))
			distsList = append(distsList, receiverSectDists[:s]...)
			distsList = append(distsList, aggregated...)
		default:
			receiverSectDists[s] = aggregated[0]
		}
	}
	if distsList != nil {
		return distsList, nil
	}
	return receiverSectDists, nil
}

// aggSectsToSect produces the layer-2 output distributions for multiple
// sources against one receiver.
func (c *Calculator) aggSectsToSect(ctx context.Context, sources []ports.Section, receiver ports.Section) ([]domain.Distribution, error) {
	if len(c.layers) < 3 {
		return nil, fmt.Errorf("%w: sections-to-section aggregation layer not supplied", domain.ErrPipelineDepth)
	}
	receiverSectDists, err := c.collectSectsToSect(ctx, sources, receiver)
	if err != nil {
		return nil, err
	}
	aggregated, err := c.layers[2].Aggregate(receiver.SectionID(), receiverSectDists)
	if err != nil {
		return nil, fmt.Errorf("sects-to-sect aggregation -> %d: %w", receiver.SectionID(), err)
	}
	return aggregated, nil
}

// SectsToSect computes the aggregate scalar for multiple source sections
// acting on one receiver section. The pipeline must have at least three
// layers.
func (c *Calculator) SectsToSect(ctx context.Context, sources []ports.Section, receiver ports.Section) (float64, error) {
	if len(c.layers) < 3 {
		return 0, fmt.Errorf("%w: sections-to-section aggregation layer not supplied", domain.ErrPipelineDepth)
	}
	receiverSectDists, err := c.collectSectsToSect(ctx, sources, receiver)
	if err != nil {
		return 0, err
	}
	return c.processUntilTerminal(2, receiver.SectionID(), receiverSectDists)
}

// SectsToSects computes the aggregate scalar for multiple source sections
// acting on multiple receiver sections. It requires a full four-layer
// pipeline ending in a terminal method.
func (c *Calculator) SectsToSects(ctx context.Context, sources, receivers []ports.Section) (float64, error) {
	if len(c.layers) < MaxLayers {
		return 0, fmt.Errorf("%w: sections-to-sections aggregation layer not supplied", domain.ErrPipelineDepth)
	}

	receiverSectDists := make([]domain.Distribution, len(receivers))
	var distsList []domain.Distribution
	for r, receiver := range receivers {
		aggregated, err := c.aggSectsToSect(ctx, sources, receiver)
		if err != nil {
			return 0, err
		}
		switch {
		case distsList != nil:
			distsList = append(distsList, aggregated...)
		case len(aggregated) != 1:
			distsList = make([]domain.Distribution, 0, len(receivers)*max(1, len(aggregated)))
			distsList = append(distsList, receiverSectDists[:r]...)
			distsList = append(distsList, aggregated...)
		default:
			receiverSectDists[r] = aggregated[0]
		}
	}
	if distsList != nil {
		receiverSectDists = distsList
	}

	return c.layers[len(c.layers)-1].Get(receiverSectDists)
}

// Type returns the stiffness quantity this calculator aggregates.
func (c *Calculator) Type() domain.StiffnessType { return c.typ }

// Layers returns a copy of the configured aggregation layers.
func (c *Calculator) Layers() []domain.AggregationMethod {
	return append([]domain.AggregationMethod(nil), c.layers...)
}

// AllowsSectToSelf reports whether same-section source/receiver pairs are
// included in calculations.
func (c *Calculator) AllowsSectToSelf() bool { return c.allowSectToSelf }

// HasUnits reports whether the aggregate scalar carries the physical
// stiffness units (MPa) rather than being a fraction or count. It is the
// logical AND of every layer's units flag, preserved as-is even though some
// reshaping layers report units unconditionally.
func (c *Calculator) HasUnits() bool {
	hasUnits := true
	for _, layer := range c.layers {
		hasUnits = hasUnits && layer.HasUnits()
	}
	return hasUnits
}

// ScalarName derives a human-readable name for the aggregate scalar from the
// layer sequence, collapsing flattens, passthroughs, and consecutive
// duplicate layers, and special-casing the ratio and count phrasings.
func (c *Calculator) ScalarName() string {
	name := ""
	for l, layer := range c.layers {
		if layer == domain.MethodFlatten || layer == domain.MethodPassthrough ||
			(l > 0 && layer == c.layers[l-1]) {
			continue
		}

		switch {
		case layer == domain.MethodFractPositive:
			name = "Fract " + bracketed(name) + "≥0"
		case layer == domain.MethodNumNegative:
			name = "Num " + bracketed(name) + "<0"
		case layer == domain.MethodNumPositive:
			name = "Num " + bracketed(name) + "≥0"
		case layer == domain.MethodNormByCount:
			name = "[" + name + "]/Count"
		case l == 0:
			if len(c.layers) > 1 && c.layers[1] == layer {
				name = "Sect " + layer.String()
			} else {
				name = "Patch " + layer.String()
			}
		case layer == domain.MethodReceiverSum:
			switch {
			case c.layers[1].IsTerminal():
				name = "Receiver Sect Aggregate" + trailingBracket(name)
			case c.layers[0].IsTerminal():
				name = "Receiver Patch Aggregate" + trailingBracket(name)
			default:
				name = "Receiver Aggregate " + bracketed(name)
			}
		case l == 1 && name == "":
			name = "Sect " + layer.String()
		default:
			name = layer.String() + trailingBracket(name)
		}
	}
	return name
}

var shortNameReplacer = strings.NewReplacer(
	"Receiver", "Rec",
	"Median", "Mdn",
	"Aggregate", "Agg",
	"imum", "",
	"Sect", "S-",
	"Patch", "P-",
	"Interaction", "Int",
	" ", "",
)

// ScalarShortName abbreviates ScalarName for use in compact table headings.
func (c *Calculator) ScalarShortName() string {
	return shortNameReplacer.Replace(c.ScalarName())
}

// String renders the layer sequence for debugging output.
func (c *Calculator) String() string {
	parts := make([]string, len(c.layers))
	for i, layer := range c.layers {
		parts[i] = layer.String()
	}
	return "StiffnessCalc[" + strings.Join(parts, " -> ") + "]"
}

func bracketed(name string) string {
	if name == "" {
		return ""
	}
	return "[" + name + "]"
}

func trailingBracket(name string) string {
	if name == "" {
		return ""
	}
	return " [" + name + "]"
}
