// Package model defines the payloads exchanged with the chat server.
//
// Conventions:
//   - Session identity: User, serialized as {"id","name"} and sent as
//     the first frame of every connection
//   - IDs: random UUID strings generated once per client lifetime
//   - Chat traffic: ChatMessage, serialized as {"text","user"}
//
// The connection manager treats every payload as opaque bytes; only
// the presentation layer decodes ChatMessage.
package model
