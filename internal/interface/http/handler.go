package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/todoc/internal/domain/calendar"
	"github.com/yanqian/todoc/internal/domain/record"
	"github.com/yanqian/todoc/internal/infra/todocapi"
	apperrors "github.com/yanqian/todoc/pkg/errors"
	"github.com/yanqian/todoc/pkg/util"
)

const maxFormBytes = 64 << 10

// DayService aggregates one (kid, date).
type DayService interface {
	FetchDay(ctx context.Context, kidID int64, date string) (record.Day, error)
	Location() *time.Location
}

// MonthService builds calendar month maps.
type MonthService interface {
	FetchMonth(ctx context.Context, kidID int64, month calendar.Month) (calendar.MonthMap, error)
	Today() string
}

// KidDirectory lists the caller's kids.
type KidDirectory interface {
	Kids(ctx context.Context) ([]todocapi.Kid, error)
}

// Handler serves the journal: days, months and record writes.
type Handler struct {
	days   DayService
	months MonthService
	writer record.Writer
	kids   KidDirectory
	logger *slog.Logger
}

// NewHandler constructs the journal HTTP handler.
func NewHandler(days DayService, months MonthService, writer record.Writer, kids KidDirectory, logger *slog.Logger) *Handler {
	return &Handler{
		days:   days,
		months: months,
		writer: writer,
		kids:   kids,
		logger: logger.With("component", "http.handler"),
	}
}

// ListKids returns the registered kids. The first one is the default.
func (h *Handler) ListKids(c *gin.Context) {
	kids, err := h.kids.Kids(c.Request.Context())
	if err != nil {
		abortWithError(c, fromAppError(apperrors.Wrap(apperrors.CodeUpstream, "아이 정보를 불러오지 못했어요.", err)))
		return
	}
	if kids == nil {
		kids = []todocapi.Kid{}
	}
	c.JSON(http.StatusOK, gin.H{"kids": kids, "total": len(kids)})
}

// GetDay returns the aggregated day.
func (h *Handler) GetDay(c *gin.Context) {
	kidID, ok := kidParam(c)
	if !ok {
		return
	}
	day, err := h.days.FetchDay(c.Request.Context(), kidID, c.Param("date"))
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, day)
}

// GetMonth returns the calendar view of one month.
func (h *Handler) GetMonth(c *gin.Context) {
	kidID, ok := kidParam(c)
	if !ok {
		return
	}
	year, errY := strconv.Atoi(c.Param("year"))
	mon, errM := strconv.Atoi(c.Param("month"))
	if errY != nil || errM != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, "year and month must be numbers", nil))
		return
	}
	month, err := calendar.NewMonth(year, mon)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, errMessage(err), err))
		return
	}

	today := h.months.Today()
	selected := c.Query("selected")
	if selected != "" {
		if _, ok := util.ParseISODate(selected); !ok {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, "selected must be YYYY-MM-DD", nil))
			return
		}
		if selected > today {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, "미래 날짜는 선택할 수 없어요.", nil))
			return
		}
	}

	mm, err := h.months.FetchMonth(c.Request.Context(), kidID, month)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, calendar.BuildView(mm, selected, today))
}

// EditIntent turns a raw record into the edit navigation intent.
func (h *Handler) EditIntent(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	rec, err := record.Decode(raw)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, errMessage(err), err))
		return
	}
	intent, err := record.EditIntent(rec)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"intent": intent,
		"form":   record.FormFromRecord(rec, h.days.Location()),
	})
}

// NewIntent returns the add intent and an empty form for a category.
func (h *Handler) NewIntent(c *gin.Context) {
	category, ok := categoryParam(c)
	if !ok {
		return
	}
	date := c.Query("date")
	if date == "" {
		date = h.months.Today()
	}
	if _, ok := util.ParseISODate(date); !ok {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, "date must be YYYY-MM-DD", nil))
		return
	}
	intent, err := record.NewRecordIntent(category, date)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, errMessage(err), err))
		return
	}
	form, err := record.NewForm(category, date)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"intent": intent, "form": form})
}

// CreateRecord submits a new record from its form.
func (h *Handler) CreateRecord(c *gin.Context) {
	h.saveRecord(c, 0)
}

// UpdateRecord submits an edited record from its form.
func (h *Handler) UpdateRecord(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, "record id must be a positive number", err))
		return
	}
	h.saveRecord(c, id)
}

func (h *Handler) saveRecord(c *gin.Context, id int64) {
	kidID, ok := kidParam(c)
	if !ok {
		return
	}
	category, ok := categoryParam(c)
	if !ok {
		return
	}
	raw, ok := readBody(c)
	if !ok {
		return
	}
	form, err := record.DecodeForm(category, raw)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, errMessage(err), err))
		return
	}
	if id != 0 {
		record.SetFormID(form, id)
	}

	saved, err := record.SaveForm(c.Request.Context(), h.writer, kidID, form, h.days.Location())
	if err != nil {
		if apperrors.CodeOf(err) == "" {
			err = apperrors.Wrap(apperrors.CodeUpstream, "기록을 저장하지 못했어요.", err)
		}
		abortWithError(c, fromAppError(err))
		return
	}
	status := http.StatusCreated
	if id != 0 {
		status = http.StatusOK
	}
	c.JSON(status, saved)
}

// DeleteRecord deletes a record once the caller confirmed. With ?date= the
// re-aggregated day is returned.
func (h *Handler) DeleteRecord(c *gin.Context) {
	kidID, ok := kidParam(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, "삭제할 기록이 없어요.", err))
		return
	}
	if confirmed, _ := strconv.ParseBool(c.Query("confirm")); !confirmed {
		abortWithError(c, NewHTTPError(http.StatusConflict, apperrors.CodeConfirmationRequired, record.DeletePrompt, nil))
		return
	}

	ctx := c.Request.Context()
	if err := h.writer.DeleteRecord(ctx, kidID, id); err != nil {
		h.logger.Error("delete record failed", "kid_id", kidID, "record_id", id, "error", err)
		abortWithError(c, fromAppError(apperrors.Wrap(apperrors.CodeDeleteFailed, "기록을 삭제하지 못했어요.", err)))
		return
	}

	date := c.Query("date")
	if date == "" {
		c.Status(http.StatusNoContent)
		return
	}
	day, err := h.days.FetchDay(ctx, kidID, date)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, day)
}

func kidParam(c *gin.Context) (int64, bool) {
	kidID, err := strconv.ParseInt(c.Param("kidId"), 10, 64)
	if err != nil || kidID < 0 {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, "kidId must be a number", err))
		return 0, false
	}
	return kidID, true
}

func categoryParam(c *gin.Context) (record.RecordType, bool) {
	category, err := record.ParseType(c.Param("category"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, errMessage(err), err))
		return "", false
	}
	return category, true
}

func readBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxFormBytes+1))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return nil, false
	}
	if len(raw) > maxFormBytes {
		abortWithError(c, NewHTTPError(http.StatusRequestEntityTooLarge, "invalid_request", "request body too large", nil))
		return nil, false
	}
	return raw, true
}
