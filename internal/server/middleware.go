package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/authorization"
	obscontext "github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/context"
	"go.uber.org/zap"
)

// Identity is resolved by the upstream gateway and forwarded as trusted headers.
const (
	HeaderUserID     = "X-User-Id"
	HeaderUserRole   = "X-User-Role"
	HeaderDivisionID = "X-User-Division-Id"
)

// ActorFromHeaders puts the caller on the request context or rejects the request.
func ActorFromHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(strings.TrimSpace(c.GetHeader(HeaderUserID)), 10, 64)
		if err != nil || userID <= 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		role := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole)))
		if role == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		divisionID, err := parseOptionalInt64(c.GetHeader(HeaderDivisionID))
		if err != nil || (divisionID != nil && *divisionID <= 0) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if divisionID == nil && authorization.IsDivisionScoped(role) {
			AbortWithError(c, ErrForbidden)
			return
		}

		actor := obscontext.Actor{UserID: userID, Role: role, DivisionID: divisionID}
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func (s *Server) require(capability authorization.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor.Role, capability); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// limitUploads meters document writes per user. Limiter outages fail open.
func (s *Server) limitUploads() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := actorFrom(c)
		res, err := s.limiter.AllowUpload(c.Request.Context(), actor.UserID)
		if err != nil {
			s.log.Warn("upload rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) (obscontext.Actor, bool) {
	return obscontext.ActorFromContext(c.Request.Context())
}

// divisionScope pins division-scoped callers to their own division. Other
// callers get the requested division, which may be nil.
func divisionScope(actor obscontext.Actor, requested *int64) (*int64, error) {
	if !authorization.IsDivisionScoped(actor.Role) {
		return requested, nil
	}
	own := *actor.DivisionID
	if requested != nil && *requested != own {
		return nil, ErrForbidden
	}
	return &own, nil
}

// ensureDivisions rejects division-scoped callers targeting any other division.
func ensureDivisions(actor obscontext.Actor, ids []int64) error {
	if !authorization.IsDivisionScoped(actor.Role) {
		return nil
	}
	for _, id := range ids {
		if id != *actor.DivisionID {
			return ErrForbidden
		}
	}
	return nil
}

func isScoped(actor obscontext.Actor) bool {
	return authorization.IsDivisionScoped(actor.Role)
}
