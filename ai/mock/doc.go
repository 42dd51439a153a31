// Package mock provides test double implementations of the AI collaborator
// interfaces.
//
// The mocks allow tests to run without external services and enable
// controlled, deterministic behavior. Each mock accepts a function field for
// custom behavior and records calls for assertions:
//
//	provider := mock.NewMockProvider()
//	provider.MockParser.ParseFunc = func(ctx context.Context, file []byte, name string, call mock.ParseCall) (*ai.ParseResult, error) {
//	    return nil, errors.New("could not read page dimensions")
//	}
//
// Default behavior:
//
//   - MockEmbedder: deterministic vectors derived from text hashes; can
//     return batches in reverse order to exercise index re-sorting
//   - MockParser: passes the file bytes through as extracted markdown
//   - MockTagger: fixed "other" classification
package mock
