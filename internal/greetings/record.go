// Package greetings holds the user-submitted greeting collection revealed from
// ornaments, and keeps it fresh from a Waline comment server.
package greetings

import (
	"strings"

	strip "github.com/grokify/html-strip-tags-go"
)

// Record is one greeting as served by Waline. Comment is rendered HTML.
type Record struct {
	ID         string `json:"objectId"`
	Nick       string `json:"nick"`
	Comment    string `json:"comment"`
	Avatar     string `json:"avatar,omitempty"`
	Link       string `json:"link,omitempty"`
	Mail       string `json:"mail,omitempty"`
	InsertedAt string `json:"insertedAt"`
	PID        string `json:"pid,omitempty"`
	RID        string `json:"rid,omitempty"`
}

// PlainText is the comment with markup removed and whitespace collapsed.
func (r Record) PlainText() string {
	return strings.Join(strings.Fields(strip.StripTags(r.Comment)), " ")
}

// Public drops the sender mail unless showMail is set.
func (r Record) Public(showMail bool) Record {
	if !showMail {
		r.Mail = ""
	}
	return r
}

// Collection is an immutable snapshot of greetings, newest first.
type Collection struct {
	records []Record
	total   int
}

// NewCollection copies recs. total is the server-side count; values below len(recs)
// are raised to it.
func NewCollection(recs []Record, total int) *Collection {
	c := &Collection{records: append([]Record(nil), recs...), total: total}
	if c.total < len(c.records) {
		c.total = len(c.records)
	}
	return c
}

func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

func (c *Collection) At(i int) Record { return c.records[i] }

// Total is the number of greetings the server reports, which may exceed Len.
func (c *Collection) Total() int {
	if c == nil {
		return 0
	}
	return c.total
}

// Records returns a copy of the snapshot, newest first.
func (c *Collection) Records() []Record {
	if c == nil {
		return nil
	}
	return append([]Record(nil), c.records...)
}
