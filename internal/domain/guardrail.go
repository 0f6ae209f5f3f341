package domain

// GuardrailPredicate is a content-safety check on document metadata,
// independent of the requesting identity.
type GuardrailPredicate func(d *Document) bool

// Guardrail combines content-safety predicates. New predicates (e.g. a future
// "restricted" flag) extend it without touching retrieval orchestration.
type Guardrail struct {
	predicates []GuardrailPredicate
}

// DefaultGuardrail admits published or in-review documents without PII.
func DefaultGuardrail() Guardrail {
	return Guardrail{predicates: []GuardrailPredicate{
		func(d *Document) bool {
			return d.Status == StatusPublished || d.Status == StatusInReview
		},
		func(d *Document) bool { return !d.PII },
	}}
}

// With returns a guardrail extended with an additional predicate.
func (g Guardrail) With(p GuardrailPredicate) Guardrail {
	preds := make([]GuardrailPredicate, len(g.predicates), len(g.predicates)+1)
	copy(preds, g.predicates)
	return Guardrail{predicates: append(preds, p)}
}

// IsSafe reports whether the document passes every predicate.
func (g Guardrail) IsSafe(d *Document) bool {
	for _, p := range g.predicates {
		if !p(d) {
			return false
		}
	}
	return true
}

// SafeStatuses lists the statuses the default guardrail admits, for building
// store-level prefilters. Must stay in sync with DefaultGuardrail.
func SafeStatuses() []Status {
	return []Status{StatusPublished, StatusInReview}
}
