package cache

import "fmt"

const dedupPrefix = "faultline:dedup:"

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("faultline:ratelimit:%s", keyPrefix)
}

func DedupKey(signature string) string {
	return dedupPrefix + signature
}

// DedupKeyPattern matches every dedup entry.
func DedupKeyPattern() string {
	return dedupPrefix + "*"
}
