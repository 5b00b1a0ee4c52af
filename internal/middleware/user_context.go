package middleware

import (
	"office-hub/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	SessionUserID  = "user_id"
	currentUserKey = "CurrentUser"
)

// InjectUser загружает пользователя сессии и кладёт его в контекст запроса.
func InjectUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uid, ok := sess.Get(SessionUserID).(uint); ok && uid > 0 {
			var user models.User
			if err := db.WithContext(c.Request.Context()).First(&user, uid).Error; err == nil {
				c.Set(currentUserKey, &user)
			}
		}

		c.Next()
	}
}

// CurrentUser — nil, если пользователь не вошёл.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
