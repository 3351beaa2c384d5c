// Package engine contains the turn loop and the per-frame simulation of the board.
//
// ARCHITECTURAL RULE: the domain packages (panel, token, sprite) are single
// threaded. The Engine is the only thing that touches them and it serialises
// every call behind its mutex, so the frame loop, the WebSocket hub and the
// REST handlers can share one session.
//
// A turn is resolved at once: TakeTurn rolls, moves the discrete panel index
// and passes the turn. The token then walks to its panel over the following
// frames, and the landing effect runs on the frame it arrives.
package engine
