// Package classify decides, for an outgoing message, whether the currently
// focused product should keep riding along to the backend or be dropped.
// It is pure: no storage, no network, no state.
package classify

import (
	"regexp"
	"strings"

	"shopchat/internal/shop"
)

// Category tags a pattern family in the rule table.
type Category int

const (
	// NewSearch signals the user is starting a fresh product search.
	NewSearch Category = iota
	// NonProduct signals order/tracking/support/greeting talk.
	NonProduct
	// Continuation signals a follow-up about the focused product.
	Continuation
)

// String returns the category name used in audit traces.
func (c Category) String() string {
	switch c {
	case NewSearch:
		return "new-search"
	case NonProduct:
		return "non-product"
	case Continuation:
		return "continuation"
	}
	return "unknown"
}

// rule is one tagged pattern in the table. Rules are evaluated
// independently; ranking happens in the tie-break, not here.
type rule struct {
	cat Category
	tag string
	re  *regexp.Regexp
}

const (
	categoryNouns = `(?:dress(?:es)?|shirts?|t-?shirts?|tees?|tops?|blouses?|sweaters?|hoodies?|jackets?|coats?|jeans|pants|trousers|shorts|skirts?|leggings?|shoes?|sneakers?|boots?|sandals?|heels?|bags?|backpacks?|purses?|hats?|caps?|scarf|scarves|gloves?|socks?|belts?|watch(?:es)?|sunglasses|necklaces?|rings?|earrings?)`
	colorWords    = `(?:black|white|red|blue|green|yellow|orange|pink|purple|brown|grey|gray|navy|beige|cream|tan)`
)

var rules = []rule{
	// New-search signals
	{NewSearch, "category-noun", regexp.MustCompile(`\b` + categoryNouns + `\b`)},
	{NewSearch, "color-category", regexp.MustCompile(`\b` + colorWords + `\s+` + categoryNouns + `\b`)},
	{NewSearch, "price-bound", regexp.MustCompile(`\b(?:under|below|less than|cheaper than|budget of)\s*\$?\d+`)},
	{NewSearch, "desire", regexp.MustCompile(`\b(?:i(?:'m| am)? looking for|i want|i need|i'd like|show me|find me)\b`)},

	// Non-product signals
	{NonProduct, "order", regexp.MustCompile(`\b(?:orders?|tracking|track my|shipment|shipping|delivery|delivered|refund|returns?|exchange|cancel)\b`)},
	{NonProduct, "greeting", regexp.MustCompile(`^\s*(?:hi|hello|hey|howdy|good (?:morning|afternoon|evening))\b`)},
	{NonProduct, "thanks", regexp.MustCompile(`\b(?:thanks|thank you|thx)\b`)},
	{NonProduct, "support", regexp.MustCompile(`\b(?:help|support|customer service|speak to (?:an agent|a human))\b`)},

	// Continuation signals
	{Continuation, "attribute-question", regexp.MustCompile(`\b(?:what colou?rs?|what sizes?|what materials?|how much|what(?:'s| is) the price|in stock|available in|does (?:it|this) come|tell me (?:more|about))\b`)},
	{Continuation, "anaphora", regexp.MustCompile(`\b(?:this|it|that one|these|those)\b`)},
}

// leadingInterrogative only counts as a continuation signal when a focused
// product exists to be asked about.
var leadingInterrogative = regexp.MustCompile(`^\s*(?:what|how|does|is|are|can|could|will|would|do)\b`)

// Decision is the classifier verdict. Both flags false means "leave prior
// context untouched" (implicit maintain).
type Decision struct {
	ShouldClear    bool
	ShouldMaintain bool

	// Matched lists the tags of every rule that fired, for auditing.
	Matched []string
}

// Classify evaluates the message against the rule table and the focused
// product. It never fails; an empty or unmatched message falls through to a
// zero Decision.
//
// Policy (conservative: a false clear is worse than a false maintain):
// continuation or lexical-overlap signals always win over new-search and
// non-product signals. Clear fires only when a new-search or non-product
// signal stands unopposed.
func Classify(message string, focused *shop.Snapshot) Decision {
	var d Decision

	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return d
	}

	var newSearch, nonProduct, continuation bool
	for _, r := range rules {
		if !r.re.MatchString(msg) {
			continue
		}
		d.Matched = append(d.Matched, r.cat.String()+"/"+r.tag)
		switch r.cat {
		case NewSearch:
			newSearch = true
		case NonProduct:
			nonProduct = true
		case Continuation:
			continuation = true
		}
	}

	if focused != nil && leadingInterrogative.MatchString(msg) {
		continuation = true
		d.Matched = append(d.Matched, "continuation/leading-interrogative")
	}

	overlap := titleOverlap(msg, focused)
	if overlap {
		d.Matched = append(d.Matched, "continuation/lexical-overlap")
	}

	// Tie-break: continuation and overlap beat everything else.
	if continuation || overlap {
		d.ShouldMaintain = focused != nil
		return d
	}
	if newSearch || nonProduct {
		d.ShouldClear = true
		return d
	}
	return d
}

// titleOverlap reports whether any content word (length > 3) of the focused
// product's title appears in the message.
func titleOverlap(msg string, focused *shop.Snapshot) bool {
	for _, w := range focused.TitleWords() {
		if containsWord(msg, w) {
			return true
		}
	}
	return false
}

// containsWord matches w in msg on word boundaries so that "dress" does not
// match inside "address".
func containsWord(msg, w string) bool {
	idx := 0
	for {
		i := strings.Index(msg[idx:], w)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(w)
		beforeOK := start == 0 || !isWordByte(msg[start-1])
		afterOK := end == len(msg) || !isWordByte(msg[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}
