// Package notion provides a typed client for the Notion REST API.
//
// The package maps Notion's polymorphic JSON resources (pages, databases,
// blocks, users, rich text, property values) to typed Go values and back,
// handling:
//   - API client with rate limiting (3 req/sec) and optional retry
//   - Transparent pagination of list responses
//   - Classification of API errors into a fixed taxonomy
//   - Resource-graph navigation (parents, children, database rows)
//   - Markdown-ish text rendering of block trees
package notion
