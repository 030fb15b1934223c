package engine

// Preserves order, drops repeats.
func dedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func containsString(arr []string, s string) bool {
	for _, v := range arr {
		if v == s {
			return true
		}
	}
	return false
}

// Short human-readable reason for notices and audit lines.
func summarizeTags(tags []string) string {
	if len(tags) == 0 {
		return "rule violation"
	}
	if len(tags) > 3 {
		tags = tags[:3]
	}
	out := tags[0]
	for _, t := range tags[1:] {
		out += ", " + t
	}
	return out
}
