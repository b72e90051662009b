// Package api exposes the tracking engine and damage database over a
// small JSON HTTP interface for dashboards and field tooling.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/roadsight/damagetrack"
	"github.com/roadsight/damagetrack/store"
)

// SetupRouter wires the HTTP routes over the engine and store
func SetupRouter(engine *damagetrack.Engine, db *store.Store) *gin.Engine {

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "road damage tracking API",
		})
	})

	api := r.Group("/api")
	{
		api.GET("/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, engine.Stats())
		})

		api.GET("/tracks", func(c *gin.Context) {
			// snapshots are value copies taken under the engine lock,
			// safe to serialize while the capture loop keeps updating
			c.JSON(http.StatusOK, gin.H{"tracks": engine.ActiveTracks()})
		})

		api.POST("/reset", func(c *gin.Context) {
			engine.Reset()
			c.JSON(http.StatusOK, gin.H{"message": "engine reset"})
		})

		api.GET("/damages", func(c *gin.Context) {
			damagesHandler(c, db)
		})

		api.GET("/sessions", func(c *gin.Context) {

			sessions, err := db.Sessions()

			if err != nil {
				c.JSON(http.StatusInternalServerError,
					gin.H{"error": err.Error()})
				return
			}

			c.JSON(http.StatusOK, gin.H{"sessions": sessions})
		})

		api.GET("/summary", func(c *gin.Context) {

			sum, err := db.Summarize()

			if err != nil {
				c.JSON(http.StatusInternalServerError,
					gin.H{"error": err.Error()})
				return
			}

			c.JSON(http.StatusOK, sum)
		})
	}

	return r
}

// damagesHandler serves stored damage records.  Query parameters:
// session filters to one session, limit and offset page through the
// full set, and lat_min/lat_max/lon_min/lon_max select an area.
func damagesHandler(c *gin.Context, db *store.Store) {

	if session := c.Query("session"); session != "" {

		records, err := db.BySession(session)

		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"damages": records})
		return
	}

	if c.Query("lat_min") != "" {

		latMin, err1 := strconv.ParseFloat(c.Query("lat_min"), 64)
		latMax, err2 := strconv.ParseFloat(c.Query("lat_max"), 64)
		lonMin, err3 := strconv.ParseFloat(c.Query("lon_min"), 64)
		lonMax, err4 := strconv.ParseFloat(c.Query("lon_max"), 64)

		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			c.JSON(http.StatusBadRequest,
				gin.H{"error": "invalid area bounds"})
			return
		}

		records, err := db.InArea(latMin, latMax, lonMin, lonMax)

		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"damages": records})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))

	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))

	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	records, err := db.All(limit, offset)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"damages": records})
}
