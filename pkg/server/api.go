package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/raasclient/raas/pkg/client"
	"github.com/raasclient/raas/pkg/models"
	"github.com/raasclient/raas/pkg/soap"
	"github.com/rs/zerolog/log"
)

const (
	DataServicePath   = "/services/BiDataService"
	StreamServicePath = "/services/BiStreamingService"
)

// Largest request envelope accepted
var MaxBodySize int64 = 1 << 20

type API struct {
	Gin     *gin.Engine
	Service *Service
}

func NewAPI(svc *Service) *API {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(jsonLogs())
	router.Use(maxBodySize())

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"raas":    true,
			"data":    DataServicePath,
			"stream":  StreamServicePath,
			"reports": len(svc.Configuration.Reports),
		})
	})

	router.POST(DataServicePath, SOAPAction(), recordCall(svc), func(c *gin.Context) {
		action := c.GetString("action")
		delimiter := c.GetHeader(client.DelimiterHeader)

		switch action {
		case client.ActionLogOn:
			var req client.LogOn
			if !decode(c, &req) {
				return
			}
			respond(c, client.LogOnResponse{Result: svc.LogOn(req.Request)})
		case client.ActionLogOnWithToken:
			var req client.LogOnWithToken
			if !decode(c, &req) {
				return
			}
			respond(c, client.LogOnWithTokenResponse{Result: svc.LogOnWithToken(req.Request)})
		case client.ActionExecuteReport:
			var req client.ExecuteReport
			if !decode(c, &req) {
				return
			}
			c.Set("session_id", req.Context.SessionID)
			streamURI := baseURL(c.Request) + StreamServicePath
			respond(c, client.ExecuteReportResponse{
				Result: svc.ExecuteReport(req.Request, req.Context, delimiter, streamURI),
			})
		case client.ActionLogOff:
			var req client.LogOff
			if !decode(c, &req) {
				return
			}
			c.Set("session_id", req.Context.SessionID)
			if err := svc.LogOff(req.Context); err != nil {
				fault(c, http.StatusInternalServerError, "s:Sender", err.Error())
				return
			}
			respond(c, client.LogOffResponse{})
		default:
			fault(c, http.StatusBadRequest, "s:Sender", "unsupported action "+action)
		}
	})

	router.POST(StreamServicePath, SOAPAction(), recordCall(svc), func(c *gin.Context) {
		if c.GetString("action") != client.ActionRetrieveReport {
			fault(c, http.StatusBadRequest, "s:Sender", "unsupported action "+c.GetString("action"))
			return
		}

		var headers struct {
			ReportKey string `xml:"ReportKey"`
		}
		var req client.RetrieveReportRequest
		if err := soap.Unmarshal(c.Request.Body, &headers, &req); err != nil {
			fault(c, http.StatusBadRequest, "s:Sender", err.Error())
			return
		}

		status, message, body := svc.RetrieveReport(headers.ReportKey)
		c.Set("report_status", string(status))
		respondStream(c, status, message, body)
	})

	return &API{router, svc}
}

func (a *API) Run() error {
	addr := a.Service.Configuration.Listen
	log.Info().Str("address", addr).Msg("starting fake raas server")
	return a.Gin.Run(addr)
}

func jsonLogs() gin.HandlerFunc {
	return gin.LoggerWithFormatter(
		func(params gin.LogFormatterParams) string {
			line := log.Info().
				Any("request_id", params.Keys["request_id"]).
				Int("status", params.StatusCode).
				Str("method", params.Method).
				Str("path", params.Path).
				Str("client_ip", params.ClientIP).
				Dur("response_time", params.Latency)

			if action, ok := params.Keys["action"].(string); ok {
				line = line.Str("action", action)
			}

			if status, ok := params.Keys["report_status"].(string); ok {
				line = line.Str("report_status", status)
			}

			if reason, ok := params.Keys["reason"].(string); ok {
				line = line.Str("reason", reason)
			}
			line.Send()
			return ""
		},
	)
}

func requestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rid := uuid.New().String()
		ctx.Set("request_id", rid)
		ctx.Header("X-Request-ID", rid)
	}
}

func maxBodySize() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, MaxBodySize)
	}
}

func recordCall(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		svc.record(Call{
			Action:    c.GetString("action"),
			Delimiter: c.GetHeader(client.DelimiterHeader),
			SessionID: c.GetString("session_id"),
		})
	}
}

func decode(c *gin.Context, v any) bool {
	if err := soap.Unmarshal(c.Request.Body, nil, v); err != nil {
		fault(c, http.StatusBadRequest, "s:Sender", err.Error())
		return false
	}
	return true
}

func respond(c *gin.Context, body any) {
	data, err := soap.MarshalResponse(c.GetString("action")+"Response", nil, body)
	if err != nil {
		fault(c, http.StatusInternalServerError, "s:Receiver", err.Error())
		return
	}
	c.Data(http.StatusOK, soap.ContentType, data)
}

func respondStream(c *gin.Context, status models.ReportResponseStatus, message string, body []byte) {
	headers := []any{
		client.HeaderStatus{Value: status},
		client.HeaderStatusMessage{Value: message},
	}
	data, err := soap.MarshalResponse(client.ActionRetrieveReport+"Response", headers, client.RetrieveReportResponse{
		ReportStream: encodeStream(body),
	})
	if err != nil {
		fault(c, http.StatusInternalServerError, "s:Receiver", err.Error())
		return
	}
	c.Data(http.StatusOK, soap.ContentType, data)
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
