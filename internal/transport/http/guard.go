// Copyright 2026 The Orgbase Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/orgbase/orgbase/internal/audit"
	"github.com/orgbase/orgbase/internal/observability/logger"
)

// RequirePermissions guards a route with permission codes. The caller
// must hold EVERY listed code in the request's organization context.
// Permissions are resolved fresh from membership rows on each request,
// never cached across requests, so a role change is effective on the
// very next call.
func (h *Handler) RequirePermissions(codes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			orgID := GetOrgID(r.Context())

			if orgID == "" {
				h.authzMetrics.RecordDecision(r.Context(), "missing_org")
				respondError(w, http.StatusBadRequest, "organization context is required: set X-Org-ID or a default organization")
				return
			}

			missing, err := h.engine.MissingPermissions(r.Context(), userID, orgID, codes)
			if err != nil {
				slog.ErrorContext(r.Context(), "permission check failed",
					logger.Error(err),
					logger.UserID(userID),
					logger.OrgID(orgID),
				)
				respondError(w, http.StatusInternalServerError, "authorization check failed")
				return
			}

			if len(missing) > 0 {
				h.authzMetrics.RecordDecision(r.Context(), "denied")
				h.auditLogger.Log(r.Context(), audit.Event{
					Type:      audit.TypePermissionDenied,
					OrgID:     orgID,
					ActorID:   userID,
					Resource:  r.Method + " " + r.URL.Path,
					IPAddress: getIPAddress(r),
					UserAgent: r.UserAgent(),
					Metadata:  map[string]any{audit.AttrPermissions: missing},
				})
				respondError(w, http.StatusForbidden,
					"missing required permissions: "+strings.Join(missing, ", "))
				return
			}

			h.authzMetrics.RecordDecision(r.Context(), "granted")
			next.ServeHTTP(w, r)
		})
	}
}
