package rangeq

import (
	"net/http"

	"github.com/wyfcoding/beats/response"
	"github.com/wyfcoding/beats/xerrors"

	"github.com/gin-gonic/gin"
)

// CreateRequest 创建树的请求体。
type CreateRequest struct {
	Name   string  `json:"name"   binding:"required,max=64,excludesall=/?#%"`
	Values []int64 `json:"values" binding:"required"`
}

// AddRequest 区间加的请求体。
type AddRequest struct {
	L     *int  `json:"l"     binding:"required,min=0"`
	R     *int  `json:"r"     binding:"required,min=0"`
	Delta int64 `json:"delta"`
}

// RangeQuery 查询参数 ?l=&r=。
type RangeQuery struct {
	L *int `form:"l" binding:"required,min=0"`
	R *int `form:"r" binding:"required,min=0"`
}

// ValueResponse 单值查询的响应。Empty 为 true 时 Value 为 null。
type ValueResponse struct {
	Value *int64 `json:"value"`
	Empty bool   `json:"empty"`
}

// SnapshotResponse 快照响应。
type SnapshotResponse struct {
	Current  []int64 `json:"current"`
	Historic []int64 `json:"historic"`
}

// Handler 把 Store 暴露为 REST 接口。
type Handler struct {
	store *Store
}

// NewHandler 创建 Handler。
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Register 在 r 下挂载 /v1/trees 路由组。
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/v1/trees")
	g.POST("", h.create)
	g.GET("", h.list)
	g.DELETE("/:name", h.delete)
	g.POST("/:name/add", h.add)
	g.GET("/:name/max", h.max)
	g.GET("/:name/historic-sum", h.historicSum)
	g.GET("/:name/historic-max", h.historicMax)
	g.GET("/:name/snapshot", h.snapshot)
	g.GET("/:name/stats", h.stats)
}

func bindErr(err error) error {
	return xerrors.ErrInvalidInput.Derive().WithDetail("%v", err)
}

func (h *Handler) create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindErr(err))
		return
	}
	if err := h.store.Create(c.Request.Context(), req.Name, req.Values); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, gin.H{"name": req.Name, "length": len(req.Values)})
}

func (h *Handler) list(c *gin.Context) {
	response.Success(c, gin.H{"names": h.store.Names()})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("name")); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) add(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindErr(err))
		return
	}
	if err := h.store.Add(c.Request.Context(), c.Param("name"), *req.L, *req.R, req.Delta); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func bindRange(c *gin.Context) (l, r int, ok bool) {
	var q RangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindErr(err))
		return 0, 0, false
	}
	return *q.L, *q.R, true
}

func valueResponse(v int64, ok bool) ValueResponse {
	if !ok {
		return ValueResponse{Empty: true}
	}
	return ValueResponse{Value: &v}
}

func (h *Handler) max(c *gin.Context) {
	l, r, ok := bindRange(c)
	if !ok {
		return
	}
	v, nonEmpty, err := h.store.Max(c.Request.Context(), c.Param("name"), l, r)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, valueResponse(v, nonEmpty))
}

func (h *Handler) historicSum(c *gin.Context) {
	l, r, ok := bindRange(c)
	if !ok {
		return
	}
	v, err := h.store.HistoricSum(c.Request.Context(), c.Param("name"), l, r)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ValueResponse{Value: &v, Empty: l == r})
}

func (h *Handler) historicMax(c *gin.Context) {
	l, r, ok := bindRange(c)
	if !ok {
		return
	}
	v, nonEmpty, err := h.store.HistoricMax(c.Request.Context(), c.Param("name"), l, r)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, valueResponse(v, nonEmpty))
}

func (h *Handler) snapshot(c *gin.Context) {
	current, historic, err := h.store.Snapshot(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, SnapshotResponse{Current: current, Historic: historic})
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
