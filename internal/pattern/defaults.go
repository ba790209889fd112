package pattern

// builtInPriority keeps built-in rules behind every stored rule.
const builtInPriority = -1000

// DefaultRules returns the built-in keyword rules for common merchants.
// They have no ID and are never stored.
func DefaultRules() []Rule {
	keywords := []struct {
		category string
		regex    string
	}{
		{"Groceries", `\b(whole\s*foods|trader\s*joe'?s?|safeway|kroger|aldi|publix|wegmans|costco|sprouts|h-?e-?b|grocery|supermarket)\b`},
		{"Dining", `\b(starbucks|chipotle|mcdonald'?s?|doordash|grubhub|uber\s*eats|restaurant|cafe|coffee|pizza|sushi|taqueria|bistro|grill)\b`},
		{"Gas", `\b(shell|chevron|exxon|mobil|bp|sunoco|valero|citgo|marathon|speedway|wawa|gas\s*station|fuel)\b`},
		{"Transportation", `\b(uber|lyft|metro|transit|parking|toll|amtrak|mta|bart|e-?zpass)\b`},
		{"Travel", `\b(airlines?|delta\s*air|united\s*air|southwest|jetblue|alaska\s*air|marriott|hilton|hyatt|airbnb|expedia|hotel|resort)\b`},
		{"Entertainment", `\b(netflix|spotify|hulu|disney\+?|hbo|steam|playstation|xbox|ticketmaster|cinema|theat(er|re)|amc)\b`},
		{"Bills & Utilities", `\b(comcast|xfinity|verizon|at&t|t-?mobile|electric|utility|utilities|water\s*dept|insurance|internet)\b`},
		{"Healthcare", `\b(cvs|walgreens|rite\s*aid|pharmacy|dental|dentist|clinic|hospital|medical|optometr\w*)\b`},
		{"Shopping", `\b(amazon|amzn|target|walmart|best\s*buy|ikea|etsy|ebay|home\s*depot|lowe'?s)\b`},
	}

	rules := make([]Rule, 0, len(keywords))
	for _, k := range keywords {
		rules = append(rules, Rule{
			Name:            "built-in " + k.category,
			MerchantPattern: k.regex,
			IsRegex:         true,
			AmountCondition: "any",
			Category:        k.category,
			Priority:        builtInPriority,
			IsActive:        true,
		})
	}
	return rules
}
