package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cloud.google.com/go/civil"
	"github.com/cryptodash/cryptodash-go/marketdata"
	"github.com/cryptodash/cryptodash-go/marketdata/stream"
)

type server struct {
	log        *logrus.Logger
	streamer   *stream.Client
	reader     *stream.Reader
	symbols    marketdata.Client
	indicators marketdata.TechnicalIndicators
}

func newServer(log *logrus.Logger, streamer *stream.Client, symbols marketdata.Client,
	indicators marketdata.TechnicalIndicators) *server {
	return &server{
		log:        log,
		streamer:   streamer,
		reader:     stream.NewReader(streamer),
		symbols:    symbols,
		indicators: indicators,
	}
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.requestLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.GET("/symbols", s.handleSymbols)
	api.GET("/indicators/:symbol", s.handleIndicators)

	st := api.Group("/stream")
	st.POST("/start", s.handleStreamStart)
	st.POST("/stop", s.handleStreamStop)
	st.GET("/price", s.handleStreamPrice)
	st.GET("/series", s.handleStreamSeries)
	st.GET("/change", s.handleStreamChange)
	st.GET("/status", s.handleStreamStatus)

	return r
}

func (s *server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
		}).Info("request")
	}
}

func (s *server) handleSymbols(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := s.symbols.GetTopSymbols(marketdata.GetTopSymbolsParams{
		Limit:      limit,
		QuoteAsset: c.Query("quote"),
	})
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": rows})
}

func (s *server) handleIndicators(c *gin.Context) {
	symbol := c.Param("symbol")
	period, _ := strconv.Atoi(c.DefaultQuery("period", "14"))
	days, _ := strconv.Atoi(c.DefaultQuery("days", "90"))
	if period <= 0 || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period and days must be positive"})
		return
	}

	today := civil.DateOf(time.Now().UTC())
	params := marketdata.IndicatorParams{Start: today.AddDays(-days), End: today}

	sma, err := s.indicators.SMA(symbol, period, params)
	if err != nil {
		s.apiError(c, err)
		return
	}
	ema, err := s.indicators.EMA(symbol, period, params)
	if err != nil {
		s.apiError(c, err)
		return
	}
	rsi, err := s.indicators.RSI(symbol, params)
	if err != nil {
		s.apiError(c, err)
		return
	}

	resp := gin.H{"symbol": symbol, "period": period}
	if n := len(sma); n > 0 {
		resp["sma"] = sma[n-1]
		resp["ema"] = ema[n-1]
		resp["rsi"] = rsi[n-1]
	}
	c.JSON(http.StatusOK, resp)
}

type startRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

func (s *server) handleStreamStart(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.streamer.Start(req.Symbol); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"symbol": req.Symbol})
}

func (s *server) handleStreamStop(c *gin.Context) {
	s.streamer.Stop()
	c.Status(http.StatusNoContent)
}

func (s *server) handleStreamPrice(c *gin.Context) {
	info := s.reader.Info()
	resp := gin.H{
		"symbol": info.Symbol,
		"status": info.Status.String(),
		"price":  nil,
	}
	if price, ok := s.reader.LatestPrice(); ok {
		resp["price"] = price
	}
	if avg, ok := s.reader.MovingAverage(); ok {
		resp["movingAverage"] = avg
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) handleStreamSeries(c *gin.Context) {
	timestamps, prices := s.reader.Series()
	c.JSON(http.StatusOK, gin.H{
		"timestamps": timestamps,
		"prices":     prices,
	})
}

func (s *server) handleStreamChange(c *gin.Context) {
	window, err := time.ParseDuration(c.DefaultQuery("window", "60s"))
	if err != nil || window <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window"})
		return
	}
	resp := gin.H{"window": window.String(), "change": nil}
	if change, ok := s.reader.Change(window); ok {
		resp["change"] = change
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) handleStreamStatus(c *gin.Context) {
	info := s.reader.Info()
	resp := gin.H{
		"status":        info.Status.String(),
		"symbol":        info.Symbol,
		"sessionId":     info.SessionID,
		"errorCount":    info.ErrorCount,
		"messageCount":  info.MessageCount,
		"uptimeSeconds": info.Uptime.Seconds(),
		"lastUpdate":    nil,
	}
	if !info.LastUpdate.IsZero() {
		resp["lastUpdate"] = info.LastUpdate.UTC().Format(time.RFC3339Nano)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) apiError(c *gin.Context, err error) {
	s.log.WithField("request_id", c.GetString("request_id")).
		WithError(err).Warn("upstream request failed")
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}
