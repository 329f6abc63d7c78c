package server

import (
	"encoding/base64"
	"mime"

	"github.com/gin-gonic/gin"
	"github.com/raasclient/raas/pkg/soap"
)

// Read the SOAP 1.2 action from the Content-Type action parameter
func SOAPAction() gin.HandlerFunc {
	return func(c *gin.Context) {
		mediaType, params, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err != nil || mediaType != "application/soap+xml" {
			fault(c, 415, "s:Sender", "Content-Type must be application/soap+xml")
			return
		}

		action := params["action"]
		if action == "" {
			fault(c, 400, "s:Sender", "Content-Type has no action")
			return
		}

		c.Set("action", action)
	}
}

func fault(c *gin.Context, status int, code string, reason string) {
	c.Set("reason", reason)
	data, err := soap.MarshalFault(code, reason)
	if err != nil {
		c.AbortWithStatus(500)
		return
	}
	c.Data(status, soap.ContentType, data)
	c.Abort()
}

func encodeStream(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(body)
}
