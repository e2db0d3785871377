package errors

import "github.com/gin-gonic/gin"

// WriteError writes the JSON error response for err on c, using the fixed
// kind-to-status mapping. The trace id set by the middleware is echoed back.
func WriteError(c *gin.Context, err error) {
	kind := KindOf(err)

	body := gin.H{
		"error":   string(kind),
		"message": Message(err),
	}
	if traceID, exists := c.Get("trace_id"); exists {
		body["trace_id"] = traceID
	}

	c.JSON(Status(kind), body)
}
