package model

import "time"

type CanvasSize struct {
	Width  int32 `json:"width"`
	Height int32 `json:"height"`
}

type CroquisTemplate struct {
	Id              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	BusinessId      string           `json:"business_id"`
	Elements        []SeatMapElement `json:"elements"`
	Sectors         []EventSector    `json:"sectors"`
	CanvasSize      CanvasSize       `json:"canvas_size"`
	BackgroundImage string           `json:"background_image,omitempty"`
	IsDefault       bool             `json:"is_default"`
	UsageCount      int32            `json:"usage_count"`
	CreatedAt       time.Time        `json:"created_at"`
}

type SaveCroquisTemplateRequest struct {
	Name            string           `json:"name" validate:"required,max=100"`
	Description     string           `json:"description" validate:"max=500"`
	Elements        []SeatMapElement `json:"elements" validate:"required,min=1"`
	Sectors         []EventSector    `json:"sectors"`
	CanvasSize      CanvasSize       `json:"canvas_size"`
	BackgroundImage string           `json:"background_image" validate:"max=500"`
	IsDefault       bool             `json:"is_default"`
}
