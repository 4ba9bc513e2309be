package http

import (
	"github.com/gin-gonic/gin"
)

const (
	farmerIDKey     = "farmer_id"
	anonymousFarmer = "anonymous"
)

func setFarmerID(c *gin.Context, id string) {
	c.Set(farmerIDKey, id)
}

func farmerID(c *gin.Context) string {
	value, ok := c.Get(farmerIDKey)
	if !ok {
		return anonymousFarmer
	}
	id, ok := value.(string)
	if !ok || id == "" {
		return anonymousFarmer
	}
	return id
}
