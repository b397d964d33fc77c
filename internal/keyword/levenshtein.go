package keyword

// LevenshteinDistance returns the edit distance between a and b, counted in runes.
// Used to rerank fuzzy title candidates, so it keeps a single DP row over the
// shorter string.
func LevenshteinDistance(a, b string) int {
	long, short := []rune(a), []rune(b)
	if len(long) < len(short) {
		long, short = short, long
	}

	row := make([]int, len(short)+1)
	for j := range row {
		row[j] = j
	}
	for i, lr := range long {
		// diag holds row[j-1] from the previous pass.
		diag := row[0]
		row[0] = i + 1
		for j, sr := range short {
			above := row[j+1]
			sub := diag
			if lr != sr {
				sub++
			}
			row[j+1] = min(above+1, row[j]+1, sub)
			diag = above
		}
	}
	return row[len(short)]
}
