// Package ws provides websocket units built on gorilla/websocket.
//
// WS.Client outputs a reference counted client object (frag/wsCl). Readers
// and senders reach it through a variable, typically stored with Set:
//
//	Const("ws://host/feed") > WS.Client > Set(Ref("socket"))
//	WS.ReadString(Client: Ref("socket")) > Log
//
// Every socket call runs on the blocking bridge, so a slow peer suspends
// only its own wire. Transport failures surface as ErrIOFailure with the
// cause kept for the log.
package ws
