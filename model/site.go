package model

type CarouselImage struct {
	Id       string `json:"id"`
	Url      string `json:"url"`
	Caption  string `json:"caption,omitempty"`
	Position int32  `json:"position"`
}

type AddCarouselImageRequest struct {
	Url     string `json:"url" validate:"required,max=500"`
	Caption string `json:"caption" validate:"max=255"`
}

type SiteConfig struct {
	SiteName     string `json:"site_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	AboutText    string `json:"about_text,omitempty"`
	FooterText   string `json:"footer_text,omitempty"`
}

type UpdateSiteConfigRequest struct {
	SiteName     string `json:"site_name" validate:"required,max=100"`
	ContactEmail string `json:"contact_email" validate:"required,email"`
	ContactPhone string `json:"contact_phone" validate:"required,max=30"`
	AboutText    string `json:"about_text" validate:"max=5000"`
	FooterText   string `json:"footer_text" validate:"max=1000"`
}
