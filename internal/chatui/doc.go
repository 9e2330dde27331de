// Package chatui is the terminal front end for a chat session.
//
// Model is a bubbletea program: a scrolling history viewport above a
// single-line compose box, with a status line for connection problems.
// Bridge turns connection.Observer callbacks into bubbletea messages so
// that all UI state changes happen inside Update.
//
// Plain is a line-oriented alternative for pipes and dumb terminals.
package chatui
