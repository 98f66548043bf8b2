package domain

import (
	"fmt"
	"math"
	"sort"
)

// AggregationMethod is one member of the closed set of aggregation
// operations. Terminal methods reduce a distribution of values to a single
// scalar; non-terminal methods reshape one or more distributions for the next
// aggregation layer.
//
// Terminal methods are declared first so that their values double as slot
// indices in an AggregationVector.
type AggregationMethod int

const (
	// MethodMean is the arithmetic mean of the values.
	MethodMean AggregationMethod = iota
	// MethodMedian is the statistical median of the values.
	MethodMedian
	// MethodSum is the sum of the values.
	MethodSum
	// MethodMin is the minimum value.
	MethodMin
	// MethodMax is the maximum value.
	MethodMax
	// MethodFractPositive is the fraction of values that are >= 0.
	MethodFractPositive
	// MethodNumPositive is the count of values that are >= 0.
	MethodNumPositive
	// MethodNumNegative is the count of values that are < 0.
	MethodNumNegative
	// MethodGreaterSumMedian is max(sum, median).
	MethodGreaterSumMedian
	// MethodGreaterMeanMedian is max(mean, median).
	MethodGreaterMeanMedian
	// MethodCount is the raw interaction count; it ignores the values and is
	// the only terminal method defined for an empty distribution.
	MethodCount

	// MethodFlatten combines all input distributions into a single flattened
	// distribution tagged with the higher-level identifier.
	MethodFlatten
	// MethodReceiverSum flattens inputs per distinct receiver ID and reduces
	// each multi-distribution group to the sum of its values.
	MethodReceiverSum
	// MethodNormByCount emits sum(values)/sum(interactions) as a single
	// one-value distribution.
	MethodNormByCount
	// MethodInteractionSign emits +1 if sum(values)/sum(interactions) >= 0.5,
	// otherwise -1.
	MethodInteractionSign
	// MethodPassthrough forwards the input distributions unchanged.
	MethodPassthrough
)

// MethodNone is a sentinel used only as a cache key component, meaning "no
// patch-level aggregation was applied". It is not a usable pipeline layer.
const MethodNone AggregationMethod = -1

// numTerminalMethods is the slot count of an AggregationVector.
const numTerminalMethods = int(MethodCount) + 1

const numMethods = int(MethodPassthrough) + 1

// methodInfo carries the static properties of each method. The hasUnits
// flags are preserved exactly from the reference behavior, including the
// non-terminal reshaping methods that report units regardless of their
// inputs.
var methodInfo = [numMethods]struct {
	name     string
	token    string
	hasUnits bool
	terminal bool
}{
	MethodMean:              {"Mean", "mean", true, true},
	MethodMedian:            {"Median", "median", true, true},
	MethodSum:               {"Sum", "sum", true, true},
	MethodMin:               {"Minimum", "min", true, true},
	MethodMax:               {"Maximum", "max", true, true},
	MethodFractPositive:     {"Fraction Positive", "fract_positive", false, true},
	MethodNumPositive:       {"Num Positive", "num_positive", false, true},
	MethodNumNegative:       {"Num Negative", "num_negative", false, true},
	MethodGreaterSumMedian:  {"Max[Sum,Median]", "greater_sum_median", true, true},
	MethodGreaterMeanMedian: {"Max[Mean,Median]", "greater_mean_median", true, true},
	MethodCount:             {"Count", "count", true, true},
	MethodFlatten:           {"Flatten", "flatten", true, false},
	MethodReceiverSum:       {"ReceiverSum", "receiver_sum", true, false},
	MethodNormByCount:       {"Normalize By Interaction Count", "norm_by_count", true, false},
	MethodInteractionSign:   {"Interaction Sign", "interaction_sign", true, false},
	MethodPassthrough:       {"Passthrough", "passthrough", true, false},
}

// Valid reports whether m is a member of the method set. MethodNone is not a
// valid pipeline layer.
func (m AggregationMethod) Valid() bool { return m >= 0 && int(m) < numMethods }

// IsTerminal reports whether m reduces a distribution to a single scalar and
// therefore terminates a pipeline.
func (m AggregationMethod) IsTerminal() bool { return m.Valid() && methodInfo[m].terminal }

// HasUnits reports whether values produced by m carry the physical stiffness
// units rather than being a ratio or count.
func (m AggregationMethod) HasUnits() bool { return m.Valid() && methodInfo[m].hasUnits }

// String returns the display name of the method.
func (m AggregationMethod) String() string {
	if m == MethodNone {
		return "None"
	}
	if !m.Valid() {
		return fmt.Sprintf("AggregationMethod(%d)", int(m))
	}
	return methodInfo[m].name
}

// Token returns the configuration token accepted by ParseAggregationMethod.
func (m AggregationMethod) Token() string {
	if !m.Valid() {
		return ""
	}
	return methodInfo[m].token
}

// ParseAggregationMethod converts a configuration token such as "median" or
// "receiver_sum" into an AggregationMethod.
func ParseAggregationMethod(token string) (AggregationMethod, error) {
	for m := AggregationMethod(0); int(m) < numMethods; m++ {
		if methodInfo[m].token == token {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, token)
}

// TerminalMethods returns all terminal methods in slot order.
func TerminalMethods() []AggregationMethod {
	methods := make([]AggregationMethod, 0, numTerminalMethods)
	for m := AggregationMethod(0); int(m) < numTerminalMethods; m++ {
		methods = append(methods, m)
	}
	return methods
}

// Calculate reduces values to a single scalar. It is only defined for
// terminal methods and fails on an empty input, except for MethodCount which
// reports zero.
func (m AggregationMethod) Calculate(values []float64) (float64, error) {
	if !m.IsTerminal() {
		return 0, fmt.Errorf("%w: cannot calculate a single value with %s", ErrNonTerminal, m)
	}
	if m == MethodCount {
		return float64(len(values)), nil
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("%s: %w", m, ErrEmptyDistribution)
	}

	switch m {
	case MethodMean:
		return sum(values) / float64(len(values)), nil
	case MethodMedian:
		return medianSorted(sortedCopy(values)), nil
	case MethodSum:
		return sum(values), nil
	case MethodMin:
		lo := values[0]
		for _, v := range values[1:] {
			lo = math.Min(lo, v)
		}
		return lo, nil
	case MethodMax:
		hi := values[0]
		for _, v := range values[1:] {
			hi = math.Max(hi, v)
		}
		return hi, nil
	case MethodFractPositive:
		return float64(countPositive(values)) / float64(len(values)), nil
	case MethodNumPositive:
		return float64(countPositive(values)), nil
	case MethodNumNegative:
		return float64(len(values) - countPositive(values)), nil
	case MethodGreaterSumMedian:
		return math.Max(sum(values), medianSorted(sortedCopy(values))), nil
	case MethodGreaterMeanMedian:
		s := sum(values)
		return math.Max(s/float64(len(values)), medianSorted(sortedCopy(values))), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownMethod, m)
	}
}

// Aggregate reshapes the given distributions for processing by the next
// layer. higherLevelID identifies the current aggregation level (a receiver
// patch or receiver section), or is -1 at a multiple-receiver level.
//
// Terminal methods may appear mid-pipeline: they reduce each input
// distribution elementwise to a one-value distribution that keeps the
// original receiver ID and interaction count.
func (m AggregationMethod) Aggregate(higherLevelID int, dists []Distribution) ([]Distribution, error) {
	switch m {
	case MethodFlatten:
		flat, err := FlattenDistributions(higherLevelID, dists)
		if err != nil {
			return nil, err
		}
		return []Distribution{flat}, nil

	case MethodReceiverSum:
		return receiverSum(dists)

	case MethodNormByCount:
		ratio, count, err := interactionRatio(dists)
		if err != nil {
			return nil, err
		}
		return []Distribution{NewDistribution(higherLevelID, count, ratio)}, nil

	case MethodInteractionSign:
		ratio, count, err := interactionRatio(dists)
		if err != nil {
			return nil, err
		}
		sign := -1.0
		if ratio >= 0.5 {
			sign = 1.0
		}
		return []Distribution{NewDistribution(higherLevelID, count, sign)}, nil

	case MethodPassthrough:
		return dists, nil

	default:
		if !m.IsTerminal() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, m)
		}
		aggregated := make([]Distribution, len(dists))
		for i, d := range dists {
			v, err := m.Calculate(d.Values)
			if err != nil {
				return nil, err
			}
			aggregated[i] = NewDistribution(d.ReceiverID, d.TotalInteractions, v)
		}
		return aggregated, nil
	}
}

// Get reduces the given distributions to a single scalar. It is only defined
// for terminal methods; multiple distributions are flattened (tagged -1)
// before the reduction.
func (m AggregationMethod) Get(dists []Distribution) (float64, error) {
	if !m.IsTerminal() {
		return 0, fmt.Errorf("%w: cannot get a single value with %s", ErrNonTerminal, m)
	}
	if len(dists) == 0 {
		return 0, fmt.Errorf("get %s: %w", m, ErrNoDistributions)
	}
	dist := dists[0]
	if len(dists) > 1 {
		var err error
		dist, err = FlattenDistributions(-1, dists)
		if err != nil {
			return 0, err
		}
	}
	return m.Calculate(dist.Values)
}

// receiverSum groups distributions by receiver ID, passing singleton groups
// through unchanged and collapsing larger groups to the sum of their
// flattened values. Groups are emitted in first-seen receiver order.
func receiverSum(dists []Distribution) ([]Distribution, error) {
	if len(dists) == 0 {
		return nil, fmt.Errorf("receiver sum: %w", ErrNoDistributions)
	}
	order := make([]int, 0, len(dists))
	groups := make(map[int][]Distribution, len(dists))
	for _, d := range dists {
		if _, ok := groups[d.ReceiverID]; !ok {
			order = append(order, d.ReceiverID)
		}
		groups[d.ReceiverID] = append(groups[d.ReceiverID], d)
	}

	out := make([]Distribution, 0, len(order))
	for _, receiverID := range order {
		group := groups[receiverID]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		flat, err := FlattenDistributions(receiverID, group)
		if err != nil {
			return nil, err
		}
		out = append(out, NewDistribution(receiverID, flat.TotalInteractions, sum(flat.Values)))
	}
	return out, nil
}

// interactionRatio sums all values and interaction counts across the given
// distributions and returns their ratio. A zero interaction count is an
// error.
func interactionRatio(dists []Distribution) (float64, int, error) {
	var total float64
	count := 0
	for _, d := range dists {
		count += d.TotalInteractions
		for _, v := range d.Values {
			total += v
		}
	}
	if count <= 0 {
		return 0, 0, fmt.Errorf("%w: %d distributions with sum=%v", ErrNoInteractions, len(dists), total)
	}
	return total / float64(count), count, nil
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

func countPositive(values []float64) int {
	n := 0
	for _, v := range values {
		if v >= 0 {
			n++
		}
	}
	return n
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// medianSorted computes the median of an already-sorted slice: the middle
// element for odd lengths, the mean of the two middle elements for even
// lengths.
func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
