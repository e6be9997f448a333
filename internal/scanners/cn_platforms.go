package scanners

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// AliExpress and Taobao ship their result sets as JSON blobs embedded in
// script tags rather than markup. Both parsers pull the blob out with a
// regex and decode only the fields the pipeline needs; anything that does
// not decode cleanly is skipped rather than guessed at.

var (
	aliRunParamsRe  = regexp.MustCompile(`window\.runParams\s*=\s*(\{.*?\});`)
	taobaoConfigRe  = regexp.MustCompile(`g_page_config\s*=\s*(\{.*?\});\s*\n`)
	trailingSlashRe = regexp.MustCompile(`^//`)
)

type aliItem struct {
	ProductID any `json:"productId"`
	Title     struct {
		DisplayTitle string `json:"displayTitle"`
	} `json:"title"`
	Prices struct {
		SalePrice struct {
			FormattedPrice string `json:"formattedPrice"`
		} `json:"salePrice"`
	} `json:"prices"`
	ProductDetailURL string `json:"productDetailUrl"`
	Image            struct {
		ImgURL string `json:"imgUrl"`
	} `json:"image"`
	Store struct {
		StoreName string `json:"storeName"`
	} `json:"store"`
}

func parseAliExpress(body string, cfg *PlatformConfig) []models.Listing {
	m := aliRunParamsRe.FindStringSubmatch(body)
	if m == nil {
		return nil
	}

	var payload struct {
		Mods struct {
			ItemList struct {
				Content []aliItem `json:"content"`
			} `json:"itemList"`
		} `json:"mods"`
	}
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		return nil
	}

	var out []models.Listing
	for _, item := range payload.Mods.ItemList.Content {
		u := item.ProductDetailURL
		if trailingSlashRe.MatchString(u) {
			u = "https:" + u
		}
		l := models.Listing{
			Title: item.Title.DisplayTitle,
			URL:   u,
			Price: models.Price{Raw: item.Prices.SalePrice.FormattedPrice},
		}
		// productId arrives as either a number or a string.
		if item.ProductID != nil {
			l.PlatformID = fmt.Sprint(item.ProductID)
		}
		if item.Store.StoreName != "" {
			l.Seller = map[string]string{"store": item.Store.StoreName}
		}
		if item.Image.ImgURL != "" {
			l.ImageURL = "https:" + strings.TrimPrefix(item.Image.ImgURL, "https:")
		}
		out = append(out, l)
	}
	return out
}

type taobaoAuction struct {
	Title     string `json:"title"`
	DetailURL string `json:"detail_url"`
	ViewPrice string `json:"view_price"`
	ItemLoc   string `json:"item_loc"`
	Nick      string `json:"nick"`
	PicURL    string `json:"pic_url"`
	NID       string `json:"nid"`
}

func parseTaobao(body string, cfg *PlatformConfig) []models.Listing {
	m := taobaoConfigRe.FindStringSubmatch(body)
	if m == nil {
		return nil
	}

	var payload struct {
		Mods struct {
			ItemList struct {
				Data struct {
					Auctions []taobaoAuction `json:"auctions"`
				} `json:"data"`
			} `json:"itemlist"`
		} `json:"mods"`
	}
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		return nil
	}

	var out []models.Listing
	for _, a := range payload.Mods.ItemList.Data.Auctions {
		u := a.DetailURL
		if trailingSlashRe.MatchString(u) {
			u = "https:" + u
		}
		// Taobao titles embed <span class=H>highlight</span> markers.
		title := stripTags(a.Title)

		l := models.Listing{
			PlatformID: a.NID,
			Title:      title,
			URL:        u,
			Price:      models.Price{Raw: "¥" + a.ViewPrice},
			Location:   a.ItemLoc,
		}
		if a.Nick != "" {
			l.Seller = map[string]string{"nick": a.Nick}
		}
		if a.PicURL != "" {
			l.ImageURL = "https:" + strings.TrimPrefix(a.PicURL, "https:")
		}
		out = append(out, l)
	}
	return out
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

func stripTags(s string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(s, ""))
}
