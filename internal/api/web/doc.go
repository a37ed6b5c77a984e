// Package web serves the command verbs over plain HTTP with chi.
//
// Every verb is reachable as GET or POST /{verb} and answers its reply token
// as text. GET / serves a control page with one button per verb and
// GET /api/status returns the rig snapshot as JSON.
package web
