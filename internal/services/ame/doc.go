// Package ame talks to the Adobe Media Encoder web service.
//
// Client.Submit sends one manifest to POST /job and classifies the reply into
// a Result; it never retries. Retry and cooldown policy belongs to the
// submission driver. Client.Status probes GET /server and is also used by the
// encoder supervisor to wait for the service to come online.
//
// Responses are parsed as XML first. The vendor does not document the reply
// format and some builds send malformed documents, so known marker substrings
// are matched as a fallback.
package ame
