package public

import (
	"github.com/bakehouse-next/internal/service"

	"github.com/gin-gonic/gin"
)

// customerIdentityKey 顾客身份在上下文中的键，由可选顾客认证中间件写入
const customerIdentityKey = "customer_identity"

func getCustomerIdentity(c *gin.Context) *service.CustomerIdentity {
	value, ok := c.Get(customerIdentityKey)
	if !ok {
		return nil
	}
	identity, ok := value.(*service.CustomerIdentity)
	if !ok || identity == nil {
		return nil
	}
	return identity
}
