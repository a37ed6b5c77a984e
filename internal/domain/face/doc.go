// Package face contains transport-neutral types shared by the command
// surfaces: who sent a command (Actor), what happened (Report) and what the
// rig looks like right now (Status).
package face
