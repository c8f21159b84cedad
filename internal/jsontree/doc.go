// Package jsontree models JSON documents as a tagged variant tree.
//
// Configuration files such as hooks.json and mcp.json are shared between
// users and merged into existing files, so member order and number literals
// must survive a read/modify/write cycle. The standard library's map-based
// decoding loses both; Value keeps them.
package jsontree
