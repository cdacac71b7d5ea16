// Package handlers provides the HTTP handlers of the block editor API.
//
// It includes handlers for:
//   - Player block CRUD, derived editor state and saved markup
//   - Media selection, multipart uploads and WPL playlist import
//   - Skin updates and upload error notices
//   - The live player stream (server-sent events)
//   - Media library listing and rescans
//   - Health checks, version and metrics
package handlers
