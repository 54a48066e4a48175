package api

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"trademark-risk-eval/internal/cache"
	"trademark-risk-eval/internal/scoring"
	"trademark-risk-eval/internal/similarity"
	"trademark-risk-eval/internal/store"
	"trademark-risk-eval/internal/usp"
)

// SearchClient supplies candidate marks for a proposed mark.
type SearchClient interface {
	Search(ctx context.Context, term string) (usp.LookupResult, error)
}

// Config defines server dependencies.
type Config struct {
	DBPath         string
	AllowedOrigins []string
	SilentDB       bool
	Thresholds     scoring.Thresholds
	SearchConfig   usp.Config
}

// Server wires HTTP handlers with persistence and scoring.
type Server struct {
	db             *store.Database
	classifier     *scoring.Classifier
	search         SearchClient
	allowedOrigins []string
	notifier       *AnalysisNotifier
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}

	classifier, err := scoring.NewClassifier(cfg.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	var search SearchClient
	if strings.TrimSpace(cfg.SearchConfig.APIKey) == "" {
		logrus.Info("trademark search disabled - no API key configured")
	} else {
		results := cache.New[usp.LookupResult](cfg.SearchConfig.CacheTTL, cfg.SearchConfig.CacheSize)
		client, err := usp.NewClient(cfg.SearchConfig, results)
		if err != nil {
			return nil, fmt.Errorf("usp client: %w", err)
		}
		search = client
		logrus.WithFields(logrus.Fields{
			"rows":       cfg.SearchConfig.Rows,
			"ttl":        cfg.SearchConfig.CacheTTL,
			"cache_size": cfg.SearchConfig.CacheSize,
			"timeout":    cfg.SearchConfig.Timeout,
		}).Info("trademark search enabled")
	}

	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}
	if count, err := db.CountCases(); err != nil {
		logrus.WithError(err).Warn("count stored cases")
	} else {
		logrus.WithField("cases", count).Info("case store ready")
	}

	return &Server{
		db:             db,
		classifier:     classifier,
		search:         search,
		allowedOrigins: cfg.AllowedOrigins,
		notifier:       NewAnalysisNotifier(),
	}, nil
}

// Close releases the database handle.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.POST("/similarity", s.handleSimilarity)
		api.POST("/classify", s.handleClassify)
		api.POST("/cases", s.handleCreateCase)
		api.GET("/cases", s.handleListCases)
		api.GET("/cases/stream", s.handleCaseStream)
		api.GET("/cases/:id", s.handleGetCase)
		api.GET("/cases/:id/conflicts", s.handleListConflicts)
		api.POST("/cases/:id/rescore", s.handleRescoreCase)
		api.DELETE("/cases/:id", s.handleDeleteCase)
		api.GET("/cases/:id/export.csv", s.handleExportCSV)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"thresholds": s.classifier.Thresholds(),
		"weights": gin.H{
			"phonetic": similarity.PhoneticWeight,
			"visual":   similarity.VisualWeight,
		},
		"search_enabled": s.search != nil,
		"max_candidates": maxCandidates,
	})
}

func (s *Server) handleSimilarity(c *gin.Context) {
	var req SimilarityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" || strings.TrimSpace(req.Name) == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("query and name are required"))
		return
	}
	result := similarity.Compare(req.Query, req.Name)
	c.JSON(http.StatusOK, SimilarityResponse{
		Query:  req.Query,
		Name:   req.Name,
		Result: result,
		Tier:   s.classifier.TierFor(result.Combined),
	})
}

func (s *Server) handleClassify(c *gin.Context) {
	req, ok := s.bindClassifyRequest(c)
	if !ok {
		return
	}
	source, candidates, err := s.resolveCandidates(c.Request.Context(), req)
	if err != nil {
		s.renderError(c, statusFor(err), err)
		return
	}
	query := strings.TrimSpace(req.Query)
	c.JSON(http.StatusOK, s.classify(query, candidates).response(query, source))
}

func (s *Server) handleCreateCase(c *gin.Context) {
	req, ok := s.bindClassifyRequest(c)
	if !ok {
		return
	}
	record, conflicts, err := s.analyzeCase(c.Request.Context(), req)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			logrus.WithError(err).WithField("query", req.Query).Error("analyse case")
		}
		s.renderError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusCreated, CaseDetailResponse{
		Case:      CaseFromModel(*record),
		Conflicts: conflictsFromModels(conflicts),
	})
}

func (s *Server) bindClassifyRequest(c *gin.Context) (ClassifyRequest, bool) {
	var req ClassifyRequest
	if c.Request.Body == nil {
		s.renderError(c, http.StatusBadRequest, errQueryRequired)
		return req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errQueryRequired
		}
		s.renderError(c, http.StatusBadRequest, err)
		return req, false
	}
	return req, true
}

func (s *Server) handleListCases(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 100
	}
	minRisk, _ := strconv.ParseFloat(c.Query("minRisk"), 64)

	rows, total, err := s.db.ListCases(store.CaseQuery{
		Query:     strings.TrimSpace(c.Query("q")),
		RiskLevel: strings.TrimSpace(c.Query("riskLevel")),
		MinRisk:   minRisk,
		Sort:      strings.TrimSpace(c.Query("sort")),
		Offset:    page * pageSize,
		Limit:     pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	items := make([]CaseDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, CaseFromModel(row))
	}
	c.JSON(http.StatusOK, CasesResponse{Items: items, Total: total})
}

func (s *Server) handleGetCase(c *gin.Context) {
	record, err := s.db.GetCase(c.Param("id"))
	if err != nil {
		s.renderError(c, statusFor(err), err)
		return
	}
	rows, err := s.db.ListConflicts(record.ID, false)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, CaseDetailResponse{
		Case:      CaseFromModel(*record),
		Conflicts: conflictsFromModels(rows),
	})
}

func (s *Server) handleListConflicts(c *gin.Context) {
	record, err := s.db.GetCase(c.Param("id"))
	if err != nil {
		s.renderError(c, statusFor(err), err)
		return
	}
	includedOnly, _ := strconv.ParseBool(c.DefaultQuery("included", "false"))
	rows, err := s.db.ListConflicts(record.ID, includedOnly)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, ConflictsResponse{CaseID: record.PublicID, Items: conflictsFromModels(rows)})
}

func (s *Server) handleRescoreCase(c *gin.Context) {
	record, conflicts, err := s.rescoreCase(c.Param("id"))
	if err != nil {
		s.renderError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, CaseDetailResponse{
		Case:      CaseFromModel(*record),
		Conflicts: conflictsFromModels(conflicts),
	})
}

func (s *Server) handleDeleteCase(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.db.DeleteCase(id); err != nil {
		s.renderError(c, statusFor(err), err)
		return
	}
	s.notifier.Broadcast(AnalysisEvent{Type: EventDeleted, CaseID: id})
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportCSV(c *gin.Context) {
	record, err := s.db.GetCase(c.Param("id"))
	if err != nil {
		s.renderError(c, statusFor(err), err)
		return
	}
	rows, err := s.db.ListConflicts(record.ID, false)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=case-%s.csv", record.PublicID))
	c.Header("Content-Type", "text/csv")

	writer := csv.NewWriter(c.Writer)
	headers := []string{"name", "serial", "owner", "accuracy", "phonetic", "visual", "combined", "core_word_match", "matched_words", "included", "api_false_positive", "rule", "tier", "reason"}
	if err := writer.Write(headers); err != nil {
		return
	}
	for _, row := range rows {
		dto := ConflictFromModel(row)
		line := []string{
			dto.Name,
			dto.Serial,
			dto.Owner,
			fmt.Sprintf("%.2f", dto.Accuracy),
			strconv.Itoa(dto.Phonetic),
			strconv.Itoa(dto.Visual),
			strconv.Itoa(dto.Combined),
			strconv.FormatBool(dto.CoreWordMatch),
			strings.Join(dto.MatchedWords, "|"),
			strconv.FormatBool(dto.Included),
			strconv.FormatBool(dto.APIFalsePositive),
			dto.Rule,
			dto.Tier,
			dto.Reason,
		}
		if err := writer.Write(line); err != nil {
			return
		}
	}
	writer.Flush()
}

func (s *Server) handleCaseStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("case websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("case websocket closed")
			} else {
				logrus.WithError(err).Warn("case websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
