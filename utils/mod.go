package utils

func FindIndex[T comparable](slice []T, item T) int {
	for i, v := range slice {
		if v == item {
			return i
		}
	}
	return -1
}

// Chunk splits slice into at most n contiguous chunks whose sizes differ by at
// most one; the first len(slice)%n chunks get the extra element.
func Chunk[T any](slice []T, n int) [][]T {
	if n <= 0 {
		panic("chunk count must be positive")
	}
	n = min(n, len(slice))
	if n == 0 {
		return nil
	}

	chunks := make([][]T, 0, n)
	size, extra := len(slice)/n, len(slice)%n
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < extra {
			end++
		}
		chunks = append(chunks, slice[start:end:end])
		start = end
	}
	return chunks
}
