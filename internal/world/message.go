// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package world

// Message is text published to a player, a room or the whole world.
type Message struct {
	Text string            `json:"message"`
	Meta map[string]string `json:"meta,omitempty"`
	// Script names the script that produced the message, if any.
	Script string `json:"script,omitempty"`
	// FirstPerson and ThirdPerson are alternate renderings for the actor and observers.
	FirstPerson string `json:"first_person,omitempty"`
	ThirdPerson string `json:"third_person,omitempty"`
}

// Text builds a plain message.
func Text(s string) Message {
	return Message{Text: s}
}
