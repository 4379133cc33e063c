package handlers

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// PollIntervals are advertised to clients in X-Poll-Interval.
type PollIntervals struct {
	Orders  time.Duration
	History time.Duration
	Stats   time.Duration
}

// DefaultPollIntervals matches the staff screens' refresh rates.
var DefaultPollIntervals = PollIntervals{
	Orders:  5 * time.Second,
	History: 30 * time.Second,
	Stats:   5 * time.Second,
}

// etag identifies the response of one query at one repository version.
// The version must be read before the data it tags, so a tag never
// outlives the data it was computed for. Tags from an earlier process
// never match because the epoch changes on every open.
func etag(epoch string, version uint64, scope string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(epoch))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(scope))
	return fmt.Sprintf(`W/"%d-%x"`, version, h.Sum64())
}

// respondPolled writes body for a polling client, or 304 when the client
// already holds the current representation.
func respondPolled(c *gin.Context, interval time.Duration, tag string, body func() any) {
	c.Header("Cache-Control", "no-store")
	c.Header("X-Poll-Interval", strconv.Itoa(int(interval/time.Second)))
	c.Header("ETag", tag)

	if match := c.GetHeader("If-None-Match"); match != "" && match == tag {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, body())
}
