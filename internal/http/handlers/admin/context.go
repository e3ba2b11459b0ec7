package admin

import (
	handlershared "github.com/bakehouse-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getStaffID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "staff_id")
}
