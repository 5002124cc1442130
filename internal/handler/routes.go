/*
 *    Copyright 2025 sbistransin
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package handler

import "github.com/gin-gonic/gin"

func (h *HttpHandlers) RegisterRoutes(router *gin.Engine) {
	router.Use(h.LoggerMiddleware())

	auth := router.Group("/auth")
	{
		auth.GET("/start/:discordUserId", h.HandleAuthStart)
		auth.GET("/callback", h.HandleAuthCallback)
	}

	router.GET("/webhook", h.HandleWebhookVerify)
	router.POST("/webhook", h.HandleWebhookEvent)

	router.POST("/interactions", h.HandleInteractions)
}
