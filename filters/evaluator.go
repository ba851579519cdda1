// Package filters decides whether a webhook integration should fire for a
// given shipment event.
package filters

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-cargo-notify/core"
)

// fieldAccessors is the closed set of filterable snapshot attributes. Paths
// outside this table resolve to absent, which makes comparisons fail closed.
var fieldAccessors = map[string]func(core.ShipmentSnapshot) (any, bool){
	"code": func(s core.ShipmentSnapshot) (any, bool) {
		return s.Code, s.Code != ""
	},
	"status": func(s core.ShipmentSnapshot) (any, bool) {
		return string(s.Status), s.Status != ""
	},
	"client": func(s core.ShipmentSnapshot) (any, bool) {
		return s.Client, s.Client != ""
	},
	"city": func(s core.ShipmentSnapshot) (any, bool) {
		return s.City, s.City != ""
	},
	"state": func(s core.ShipmentSnapshot) (any, bool) {
		return s.State, s.State != ""
	},
	"carrier": func(s core.ShipmentSnapshot) (any, bool) {
		return s.Carrier, s.Carrier != ""
	},
	"plate": func(s core.ShipmentSnapshot) (any, bool) {
		return s.Plate, s.Plate != ""
	},
	"difal": func(s core.ShipmentSnapshot) (any, bool) {
		return s.DIFAL, true
	},
	"financial.customerFreightValue": func(s core.ShipmentSnapshot) (any, bool) {
		if s.Financial.CustomerFreightValue == nil {
			return nil, false
		}
		return *s.Financial.CustomerFreightValue, true
	},
	"financial.invoiceValue": func(s core.ShipmentSnapshot) (any, bool) {
		if s.Financial.InvoiceValue == nil {
			return nil, false
		}
		return *s.Financial.InvoiceValue, true
	},
	"deliveryPoints.count": func(s core.ShipmentSnapshot) (any, bool) {
		return len(s.DeliveryPoints), true
	},
}

// FilterableFields lists the field paths filter rules may reference.
func FilterableFields() []string {
	fields := make([]string, 0, len(fieldAccessors))
	for path := range fieldAccessors {
		fields = append(fields, path)
	}
	return fields
}

// Evaluator applies the eligibility gate for one integration: active flag,
// endpoint presence, event allowlist, then every filter rule in order.
type Evaluator struct {
	logger core.Logger
}

type Option func(*Evaluator)

func WithLogger(logger core.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func New(options ...Option) *Evaluator {
	evaluator := &Evaluator{logger: glog.Ensure(nil)}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(evaluator)
	}
	return evaluator
}

// ShouldTrigger fails closed: an inactive or unconfigured integration, or an
// event type outside the allowlist, never fires. All filter rules must pass;
// evaluation stops at the first failing rule.
func (e *Evaluator) ShouldTrigger(integration core.IntegrationConfig, event core.DomainEvent, snapshot core.ShipmentSnapshot) bool {
	if e == nil {
		return false
	}
	if !integration.Active {
		return false
	}
	if strings.TrimSpace(integration.EndpointURL) == "" {
		return false
	}
	if !integration.AllowsEvent(event.EventType) {
		return false
	}
	for _, rule := range integration.Filters {
		if !e.EvaluateRule(rule, snapshot) {
			return false
		}
	}
	return true
}

// EvaluateRule applies one rule to the snapshot. An unknown operator passes
// so a misconfigured rule does not silently block every delivery.
func (e *Evaluator) EvaluateRule(rule core.FilterRule, snapshot core.ShipmentSnapshot) bool {
	fieldValue, present := resolveField(rule.FieldPath, snapshot)

	switch rule.Operator {
	case core.FilterOperatorEquals:
		return looseEqual(fieldValue, present, rule.Value)
	case core.FilterOperatorNotEquals:
		return !looseEqual(fieldValue, present, rule.Value)
	case core.FilterOperatorGreaterThan:
		left, leftOK := toNumber(fieldValue, present)
		right, rightOK := toNumber(rule.Value, true)
		return leftOK && rightOK && left > right
	case core.FilterOperatorLessThan:
		left, leftOK := toNumber(fieldValue, present)
		right, rightOK := toNumber(rule.Value, true)
		return leftOK && rightOK && left < right
	case core.FilterOperatorContains:
		// An empty needle never matches: a rule with a blank value is treated
		// as misconfigured rather than as a match for every event.
		haystack := coerceText(fieldValue, present)
		needle := coerceText(rule.Value, true)
		return needle != "" && strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
	default:
		if e.logger != nil {
			e.logger.Info("unknown filter operator, rule passes",
				"operator", rule.Operator, "field_path", rule.FieldPath)
		}
		return true
	}
}

func resolveField(path string, snapshot core.ShipmentSnapshot) (any, bool) {
	accessor, ok := fieldAccessors[strings.TrimSpace(path)]
	if !ok {
		return nil, false
	}
	return accessor(snapshot)
}

// looseEqual mirrors coercive equality: when both sides read as numbers the
// comparison is numeric, otherwise the textual forms are compared verbatim.
// An absent field only equals an explicit nil rule value.
func looseEqual(fieldValue any, present bool, ruleValue any) bool {
	if !present {
		return ruleValue == nil
	}
	if ruleValue == nil {
		return false
	}
	leftNum, leftOK := toNumber(fieldValue, present)
	rightNum, rightOK := toNumber(ruleValue, true)
	if leftOK && rightOK {
		return leftNum == rightNum
	}
	return coerceText(fieldValue, present) == coerceText(ruleValue, true)
}

func toNumber(value any, present bool) (float64, bool) {
	if !present || value == nil {
		return math.NaN(), false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return math.NaN(), false
		}
		return parsed, true
	default:
		return math.NaN(), false
	}
}

func coerceText(value any, present bool) string {
	if !present || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

var _ core.EligibilityEvaluator = (*Evaluator)(nil)
