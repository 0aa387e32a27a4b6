// Package record parses one NDJSON comment line into the fields the categorizer emits
package record

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	perr "sift/internal/platform/errors"
	strs "sift/internal/platform/strings"
)

// RedditBase prefixes permalinks
const RedditBase = "https://www.reddit.com"

// Record is a parsed comment. Text fields hold the JSON value rendered as text:
// strings unquoted, numbers as written, null and absent as ""
type Record struct {
	ID         string
	Author     string
	Body       string
	Subreddit  string
	LinkID     string
	Score      string
	CreatedRaw string
	Created    time.Time

	permalink    string
	hasPermalink bool
}

type wire struct {
	ID         json.RawMessage `json:"id"`
	Author     json.RawMessage `json:"author"`
	Body       json.RawMessage `json:"body"`
	Subreddit  json.RawMessage `json:"subreddit"`
	LinkID     json.RawMessage `json:"link_id"`
	Score      json.RawMessage `json:"score"`
	CreatedUTC json.RawMessage `json:"created_utc"`
	Permalink  json.RawMessage `json:"permalink"`
}

// Parse decodes line. created_utc is required: a JSON number (fractions truncate)
// or a string holding an integer, read as unix seconds UTC
func Parse(line string) (Record, error) {
	var w wire
	if err := json.Unmarshal([]byte(line), &w); err != nil {
		return Record{}, perr.Wrap(err, perr.ErrorCodeRecordParse, "invalid json")
	}
	if isNull(w.CreatedUTC) {
		return Record{}, perr.WithField(perr.RecordParsef("missing created_utc"), "created_utc")
	}
	secs, err := unixSeconds(w.CreatedUTC)
	if err != nil {
		return Record{}, perr.WithField(err, "created_utc")
	}

	r := Record{
		ID:         text(w.ID),
		Author:     text(w.Author),
		Body:       text(w.Body),
		Subreddit:  text(w.Subreddit),
		LinkID:     text(w.LinkID),
		Score:      text(w.Score),
		CreatedRaw: text(w.CreatedUTC),
		Created:    time.Unix(secs, 0).UTC(),
	}
	if !isNull(w.Permalink) {
		r.permalink, r.hasPermalink = text(w.Permalink), true
	}
	return r, nil
}

// Permalink returns the absolute comment URL, building one from subreddit, link and id
// when the record has no permalink
func (r Record) Permalink() string {
	if r.hasPermalink {
		return RedditBase + r.permalink
	}
	link := r.LinkID
	if len(link) >= 3 {
		link = link[3:]
	} else {
		link = ""
	}
	return RedditBase + "/r/" + r.Subreddit + "/comments/" + link + "/_/" + r.ID
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// text renders a raw JSON value the way it should appear in a CSV cell
func text(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

func unixSeconds(raw json.RawMessage) (int64, error) {
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, perr.Wrap(err, perr.ErrorCodeRecordParse, "invalid created_utc")
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, perr.RecordParsef("created_utc %q is not an integer", s)
		}
		return n, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		s := string(raw)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/2 {
			return 0, perr.RecordParsef("created_utc %s out of range", s)
		}
		return int64(f), nil
	default:
		return 0, perr.RecordParsef("created_utc has unsupported type: %s", strs.Truncate(string(raw), 32))
	}
}
