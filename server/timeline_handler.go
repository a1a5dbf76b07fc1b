package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"reelcomp/core/loader"
	"reelcomp/core/timeline"
	"reelcomp/logger"
	"reelcomp/model"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// SnapshotSource 提供当前时间线快照，*loader.Loader 实现了它
type SnapshotSource interface {
	Current() *loader.Snapshot
	State() loader.State
	Refresh()
	Subscribe(fn func(*loader.Snapshot)) func()
}

// TrackSummary 轨道布局摘要
type TrackSummary struct {
	Name          string             `json:"name"`
	Kind          model.TrackKind    `json:"kind"`
	Role          timeline.TrackRole `json:"role"`
	Extent        int                `json:"extent"`
	Segments      int                `json:"segments"`
	Transitions   int                `json:"transitions"`
	AudioReactive bool               `json:"audioReactive,omitempty"`
}

// SnapshotSummary 快照概要，WebSocket 广播与 /api/timeline 共用
type SnapshotSummary struct {
	Revision       string                 `json:"revision"`
	ProjectID      string                 `json:"projectId"`
	State          loader.State           `json:"state"`
	Source         string                 `json:"source"`
	Error          string                 `json:"error,omitempty"`
	FPS            float64                `json:"fps"`
	DurationFrames int                    `json:"durationFrames"`
	Tracks         []TrackSummary         `json:"tracks"`
	Dropped        []timeline.DroppedItem `json:"dropped,omitempty"`
	LoadedAt       time.Time              `json:"loadedAt"`
}

// Summarize 生成快照概要
func Summarize(s *loader.Snapshot) SnapshotSummary {
	sum := SnapshotSummary{
		Revision:  s.Revision,
		ProjectID: s.ProjectID,
		State:     s.State,
		Source:    s.Source,
		Error:     s.Err,
		LoadedAt:  s.LoadedAt,
	}
	if c := s.Composition; c != nil {
		sum.FPS = c.FPS
		sum.DurationFrames = c.DurationFrames
		sum.Dropped = c.Dropped
		sum.Tracks = make([]TrackSummary, 0, len(c.Layouts))
		for _, l := range c.Layouts {
			sum.Tracks = append(sum.Tracks, TrackSummary{
				Name:          l.Name,
				Kind:          l.Kind,
				Role:          l.Role,
				Extent:        l.Extent,
				Segments:      len(l.Segments),
				Transitions:   len(l.Transitions),
				AudioReactive: l.AudioReactive,
			})
		}
	}
	return sum
}

// FrameResponse 单帧查询结果
type FrameResponse struct {
	Revision     string                 `json:"revision"`
	Frame        int                    `json:"frame"`
	Instructions []timeline.Instruction `json:"instructions"`
}

// TimelineHandler 时间线相关接口
type TimelineHandler struct {
	source   SnapshotSource
	index    loader.ProjectIndex
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewTimelineHandler index 可以为 nil
func NewTimelineHandler(source SnapshotSource, index loader.ProjectIndex, hub *Hub) *TimelineHandler {
	return &TimelineHandler{
		source: source,
		index:  index,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Watch 订阅快照变化并广播，返回取消函数
func (h *TimelineHandler) Watch() func() {
	return h.source.Subscribe(func(s *loader.Snapshot) {
		data, err := json.Marshal(Summarize(s))
		if err != nil {
			logger.Error("序列化快照概要失败", logger.ErrorField(err))
			return
		}
		h.hub.Broadcast(&WSMessage{Type: MsgTypeSnapshot, Data: data})
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("写入响应失败", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// HealthHandler 返回加载状态
func (h *TimelineHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"state":   h.source.State(),
		"clients": h.hub.Count(),
	}
	if s := h.source.Current(); s != nil {
		resp["revision"] = s.Revision
	}
	writeJSON(w, http.StatusOK, resp)
}

// ProjectsHandler 列出项目索引
func (h *TimelineHandler) ProjectsHandler(w http.ResponseWriter, r *http.Request) {
	if h.index == nil {
		writeJSON(w, http.StatusOK, []model.Project{})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	projects, err := h.index.List(ctx)
	if err != nil {
		logger.Error("读取项目索引失败", logger.ErrorField(err))
		writeError(w, http.StatusBadGateway, "failed to list projects")
		return
	}
	if projects == nil {
		projects = []model.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// GetTimelineHandler 返回快照概要；?format=otio 返回时间线文档本身
func (h *TimelineHandler) GetTimelineHandler(w http.ResponseWriter, r *http.Request) {
	s := h.source.Current()
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "timeline is still loading")
		return
	}

	if r.URL.Query().Get("format") == "otio" {
		data, err := model.EncodeTimeline(s.Timeline)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Timeline-Revision", s.Revision)
		w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, Summarize(s))
}

// GetFrameHandler 返回某一帧的绘制指令
func (h *TimelineHandler) GetFrameHandler(w http.ResponseWriter, r *http.Request) {
	frame, err := strconv.Atoi(mux.Vars(r)["frame"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid frame")
		return
	}
	s := h.source.Current()
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "timeline is still loading")
		return
	}
	if frame < 0 || frame >= s.Composition.DurationFrames {
		writeError(w, http.StatusNotFound, "frame out of range")
		return
	}
	writeJSON(w, http.StatusOK, frameResponse(s, frame))
}

func frameResponse(s *loader.Snapshot, frame int) FrameResponse {
	insts := s.Composition.FrameAt(frame)
	if insts == nil {
		insts = []timeline.Instruction{}
	}
	return FrameResponse{Revision: s.Revision, Frame: frame, Instructions: insts}
}

// RefreshHandler 请求立即重新加载
func (h *TimelineHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	h.source.Refresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh scheduled"})
}

// WebSocketHandler 预览连接：连上先推送当前快照，之后推送变化，并响应帧查询
func (h *TimelineHandler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := h.hub.NewClient(conn)
	go client.WritePump()

	if s := h.source.Current(); s != nil {
		if data, err := json.Marshal(Summarize(s)); err == nil {
			client.SendMessage(&WSMessage{Type: MsgTypeSnapshot, Data: data})
		}
	}

	client.ReadPump(context.Background(), h.handleMessage)
}

func (h *TimelineHandler) handleMessage(c *Client, msg *WSMessage) {
	switch msg.Type {
	case MsgTypeFrame:
		s := h.source.Current()
		if s == nil || msg.Frame == nil {
			c.SendMessage(errorMessage("timeline not ready or frame missing"))
			return
		}
		data, err := json.Marshal(frameResponse(s, *msg.Frame))
		if err != nil {
			c.SendMessage(errorMessage(err.Error()))
			return
		}
		c.SendMessage(&WSMessage{Type: MsgTypeFrameResult, Frame: msg.Frame, Data: data})
	default:
		c.SendMessage(errorMessage("unknown message type: " + string(msg.Type)))
	}
}

func errorMessage(text string) *WSMessage {
	data, _ := json.Marshal(map[string]string{"message": text})
	return &WSMessage{Type: MsgTypeError, Data: data}
}
