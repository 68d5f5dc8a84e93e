package admin

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chiptrack/internal/constants"
	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/repository"
	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin"
)

// ====================  入库  ====================

// RegisterSingleChipRequest 单颗登记请求
type RegisterSingleChipRequest struct {
	UID     string `json:"uid" binding:"required,chip_uid"`
	OrderID *uint  `json:"order_id"`
}

// RegisterSingleChip 单颗芯片登记（EN_TRANSIT）
func (h *Handler) RegisterSingleChip(c *gin.Context) {
	var req RegisterSingleChipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	chip, err := h.ChipService.RegisterSingle(c.Request.Context(), req.UID, req.OrderID)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, chip)
}

// ImportChipsRequest 批量导入请求
type ImportChipsRequest struct {
	OrderID uint     `json:"order_id" binding:"required"`
	UIDs    []string `json:"uids" binding:"required"`
}

// ImportChips 按采购单批量导入 UID
func (h *Handler) ImportChips(c *gin.Context) {
	var req ImportChipsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.ChipService.ImportUIDs(c.Request.Context(), req.OrderID, req.UIDs)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, result)
}

// ParseChipSpreadsheet 解析上传的 xlsx/csv，只返回 UID 列表不落库
func (h *Handler) ParseChipSpreadsheet(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	maxBytes := h.Config.Chip.SpreadsheetMaxBytes
	if maxBytes > 0 && file.Size > maxBytes {
		respondError(c, response.CodeBadRequest, "error.spreadsheet_too_large", nil)
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	defer src.Close()

	var reader io.Reader = src
	if maxBytes > 0 {
		reader = io.LimitReader(src, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	parsed, err := h.ChipService.ParseSpreadsheet(file.Filename, data)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, parsed)
}

// ====================  状态流转  ====================

// ReceiveChipFromSupplier 供应商到货入库
func (h *Handler) ReceiveChipFromSupplier(c *gin.Context) {
	h.runChipAction(c, func(actor service.ChipActor, chipID uint) (interface{}, error) {
		return h.ChipService.ReceiveFromSupplier(c.Request.Context(), actor, chipID)
	})
}

// EncodeChip 后台触发编码，返回写卡数据
func (h *Handler) EncodeChip(c *gin.Context) {
	h.runChipAction(c, func(actor service.ChipActor, chipID uint) (interface{}, error) {
		return h.ChipService.Encode(c.Request.Context(), actor, chipID)
	})
}

// ShipChipRequest 发货请求
type ShipChipRequest struct {
	OrderID       uint   `json:"order_id" binding:"required"`
	PackagingCode string `json:"packaging_code" binding:"max=64"`
}

// ShipChipToClient 发货并绑定订单
func (h *Handler) ShipChipToClient(c *gin.Context) {
	var req ShipChipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	h.runChipAction(c, func(actor service.ChipActor, chipID uint) (interface{}, error) {
		return h.ChipService.ShipToClient(c.Request.Context(), actor, chipID, service.ShipToClientInput{
			OrderID:       req.OrderID,
			PackagingCode: req.PackagingCode,
		})
	})
}

// ReceiveChipSav 售后件到仓
func (h *Handler) ReceiveChipSav(c *gin.Context) {
	h.runChipAction(c, func(actor service.ChipActor, chipID uint) (interface{}, error) {
		return h.ChipService.ReceiveSav(c.Request.Context(), actor, chipID)
	})
}

// ReplaceChipRequest 换货请求
type ReplaceChipRequest struct {
	ReplacementChipID uint `json:"replacement_chip_id" binding:"required"`
}

// ReplaceChip 用库存芯片替换售后芯片
func (h *Handler) ReplaceChip(c *gin.Context) {
	var req ReplaceChipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	h.runChipAction(c, func(actor service.ChipActor, chipID uint) (interface{}, error) {
		return h.ChipService.Replace(c.Request.Context(), actor, chipID, req.ReplacementChipID)
	})
}

// ArchiveChipRequest 归档请求
type ArchiveChipRequest struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

// ArchiveChip 归档芯片（终态）
func (h *Handler) ArchiveChip(c *gin.Context) {
	actor, ok := adminActor(c)
	if !ok {
		return
	}
	chipID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req ArchiveChipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	chip, err := h.ChipService.Archive(c.Request.Context(), actor, chipID, req.Reason)
	if err != nil {
		if errors.Is(err, service.ErrChipArchiveReasonShort) {
			handlershared.RespondAppError(c, response.NewAppError(response.CodeBadRequest, "error.chip_archive_reason_short").
				WithArgs(h.ChipService.ArchiveMinWords()))
			return
		}
		respondChipError(c, err)
		return
	}
	response.Success(c, chip)
}

// DeactivateChip 后台停用芯片
func (h *Handler) DeactivateChip(c *gin.Context) {
	h.runChipAction(c, func(actor service.ChipActor, chipID uint) (interface{}, error) {
		return h.ChipService.Deactivate(c.Request.Context(), actor, chipID)
	})
}

// runChipAction 解析操作人与芯片 ID 后执行操作
func (h *Handler) runChipAction(c *gin.Context, fn func(actor service.ChipActor, chipID uint) (interface{}, error)) {
	actor, ok := adminActor(c)
	if !ok {
		return
	}
	chipID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	result, err := fn(actor, chipID)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, result)
}

// ====================  查询  ====================

// chipListFilterFromQuery 读取列表与导出共用的过滤参数
func chipListFilterFromQuery(c *gin.Context) (repository.ChipListFilter, bool) {
	filter := repository.ChipListFilter{UID: strings.ToUpper(strings.TrimSpace(c.Query("uid")))}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, ok := constants.ParseChipStatus(strings.ToUpper(raw))
		if !ok {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return filter, false
		}
		filter.Status = status
	}
	customerID, err := handlershared.ParseQueryUint(c, "customer_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return filter, false
	}
	supplierOrderID, err := handlershared.ParseQueryUint(c, "supplier_order_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return filter, false
	}
	createdFrom, err := handlershared.ParseQueryTime(c, "created_from")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return filter, false
	}
	createdTo, err := handlershared.ParseQueryTime(c, "created_to")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return filter, false
	}
	filter.CustomerID = customerID
	filter.SupplierOrderID = supplierOrderID
	filter.CreatedFrom = createdFrom
	filter.CreatedTo = createdTo
	return filter, true
}

// ListChips 芯片列表
func (h *Handler) ListChips(c *gin.Context) {
	filter, ok := chipListFilterFromQuery(c)
	if !ok {
		return
	}
	filter.Page, filter.PageSize = handlershared.PageQuery(c)

	chips, total, err := h.ChipService.ListChips(filter)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.SuccessWithPage(c, chips, response.BuildPagination(filter.Page, filter.PageSize, total))
}

// GetChip 芯片详情
func (h *Handler) GetChip(c *gin.Context) {
	h.runChipAction(c, func(actor service.ChipActor, chipID uint) (interface{}, error) {
		return h.ChipService.GetChip(actor, chipID)
	})
}

// GetChipStatusHistory 芯片流转记录
func (h *Handler) GetChipStatusHistory(c *gin.Context) {
	h.runChipAction(c, func(actor service.ChipActor, chipID uint) (interface{}, error) {
		return h.ChipService.ListHistory(actor, chipID)
	})
}

// AuditChip 按流转记录重放并核对当前状态
func (h *Handler) AuditChip(c *gin.Context) {
	chipID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	audit, err := h.ChipService.AuditChip(chipID)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, audit)
}

// ExportChipsCSV 按过滤条件导出 CSV
func (h *Handler) ExportChipsCSV(c *gin.Context) {
	filter, ok := chipListFilterFromQuery(c)
	if !ok {
		return
	}

	filename := fmt.Sprintf("chips-%s.csv", time.Now().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(200)

	written, err := h.ChipService.ExportCSV(filter, c.Writer)
	if err != nil {
		// 响应头已发出，只能记录日志
		requestLog(c).Errorw("admin_chip_export_failed", "rows_written", written, "error", err)
		return
	}
	requestLog(c).Infow("admin_chip_export_done", "rows", written)
}

// GetChipStatsByStatus 各状态芯片数量
func (h *Handler) GetChipStatsByStatus(c *gin.Context) {
	stats, err := h.ChipService.StatsByStatus()
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, stats)
}

// ====================  安全事件  ====================

// ListSecurityEvents 安全事件列表
func (h *Handler) ListSecurityEvents(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	createdFrom, err := handlershared.ParseQueryTime(c, "created_from")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	createdTo, err := handlershared.ParseQueryTime(c, "created_to")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	events, total, err := h.ChipService.ListSecurityEvents(repository.ChipSecurityEventListFilter{
		Page:        page,
		PageSize:    pageSize,
		Reason:      strings.TrimSpace(c.Query("reason")),
		UID:         strings.ToUpper(strings.TrimSpace(c.Query("uid"))),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.SuccessWithPage(c, events, response.BuildPagination(page, pageSize, total))
}

// MarkSecurityEventNotified 人工确认安全事件已通知
func (h *Handler) MarkSecurityEventNotified(c *gin.Context) {
	eventID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	event, err := h.ChipService.MarkSecurityEventNotified(eventID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.security_event_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, event)
}
