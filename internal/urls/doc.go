// Package urls provides centralized constants for the documentation URLs
// printed by teensysecure.
//
// Usage:
//
//	import "github.com/muurk/teensysecure/internal/urls"
//
//	fmt.Printf("For more information, see: %s\n", urls.CodeSecurity)
package urls
