package models

type SelectRequest struct {
	ID string `json:"id" binding:"required"`
}

type ListItemRequest struct {
	Value interface{} `json:"value"`
}

type NearbyQuery struct {
	Lat      *float64 `form:"lat" binding:"required"`
	Lon      *float64 `form:"lon" binding:"required"`
	RadiusKm float64  `form:"radius_km"`
}
