package ame

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// reply holds the elements of interest from a /job or /server response.
type reply struct {
	SubmitResult string
	ServerStatus string
	JobID        string
	NoServer     bool
}

// parseReply walks the body as XML and collects known elements at any depth.
// It reports false when the body is not a well-formed document containing at
// least one element.
func parseReply(body string) (reply, bool) {
	var out reply
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || !strings.HasPrefix(trimmed, "<") {
		return out, false
	}
	dec := xml.NewDecoder(strings.NewReader(trimmed))
	dec.Strict = true

	var (
		current  string
		elements int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return reply{}, false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			elements++
			current = t.Name.Local
			if strings.EqualFold(current, "NoServer") {
				out.NoServer = true
			}
		case xml.EndElement:
			current = ""
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			switch {
			case strings.EqualFold(current, "SubmitResult"):
				out.SubmitResult = text
			case strings.EqualFold(current, "ServerStatus"):
				out.ServerStatus = text
				if strings.EqualFold(text, "NoServer") {
					out.NoServer = true
				}
			case strings.EqualFold(current, "JobId"):
				out.JobID = text
			}
		}
	}
	return out, elements > 0
}

// Fallback markers observed in vendor replies that do not parse as XML.
const (
	markerServerOffline = "Server offline"
	markerStatusOffline = "ServerStatus>Offline"
	markerStatusOnline  = "ServerStatus>Online"
	markerNoServer      = "NoServer"
	markerBusy          = "<SubmitResult>Busy</SubmitResult>"
	markerAccepted      = "<SubmitResult>Accepted</SubmitResult>"
	markerJobID         = "<JobId>"
)

// classify maps a /job HTTP reply onto a Result. Precedence is offline, busy,
// accepted marker or 2xx, then rejected. The offline markers are honoured
// anywhere in the body, whether or not it parses as XML.
func classify(statusCode int, body string) Result {
	res := Result{StatusCode: statusCode, Body: body}
	success := statusCode >= 200 && statusCode < 300

	if strings.Contains(body, markerServerOffline) || strings.Contains(body, markerStatusOffline) {
		res.Kind = KindOffline
		return res
	}

	if doc, ok := parseReply(body); ok {
		res.JobID = doc.JobID
		switch {
		case strings.EqualFold(doc.ServerStatus, "Offline") || strings.EqualFold(doc.SubmitResult, "Offline"):
			res.Kind = KindOffline
		case strings.EqualFold(doc.SubmitResult, "Busy"):
			res.Kind = KindBusy
		case strings.EqualFold(doc.SubmitResult, "Accepted") || doc.JobID != "" || success:
			res.Kind = KindAccepted
		default:
			res.Kind = KindRejected
		}
		return res
	}

	switch {
	case strings.Contains(body, markerBusy):
		res.Kind = KindBusy
	case strings.Contains(body, markerAccepted) || strings.Contains(body, markerJobID) || success:
		res.Kind = KindAccepted
		res.JobID = extractBetween(body, markerJobID, "</JobId>")
	default:
		res.Kind = KindRejected
	}
	return res
}

func extractBetween(body, open, closing string) string {
	start := strings.Index(body, open)
	if start < 0 {
		return ""
	}
	rest := body[start+len(open):]
	end := strings.Index(rest, closing)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}
