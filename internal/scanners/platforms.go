package scanners

import (
	"time"

	"github.com/sentryowl/marketwatch-engine/pkg/models"
)

// platformConfigs is the closed platform table. AliExpress and Taobao get
// smaller caps and longer delays — both block aggressively. Region hints
// are for logging only.
var platformConfigs = map[models.Platform]*PlatformConfig{
	models.PlatformEbay: {
		Platform:   models.PlatformEbay,
		BaseURL:    "https://www.ebay.com",
		SearchURL:  "https://www.ebay.com/sch/i.html?_nkw=%s&_pgn=%d",
		Pagination: PageParam,
		MaxPages:   4,
		MaxPerTerm: 50,
		DelayMin:   2 * time.Second,
		DelayMax:   4 * time.Second,
		RegionHint: "US",
		BotFloor:   2048,
		parse:      parseEbay,
	},
	models.PlatformCraigslist: {
		Platform:   models.PlatformCraigslist,
		BaseURL:    "https://www.craigslist.org",
		SearchURL:  "https://www.craigslist.org/search/sss?query=%s&page=%d",
		Pagination: PageParam,
		MaxPages:   3,
		MaxPerTerm: 40,
		DelayMin:   2 * time.Second,
		DelayMax:   4 * time.Second,
		RegionHint: "US",
		BotFloor:   1024,
		parse:      parseCraigslist,
	},
	models.PlatformOLX: {
		Platform:   models.PlatformOLX,
		BaseURL:    "https://www.olx.pl",
		SearchURL:  "https://www.olx.pl/oferty/q-%s/?page=%d",
		Pagination: PageParam,
		MaxPages:   3,
		MaxPerTerm: 40,
		DelayMin:   2 * time.Second,
		DelayMax:   4 * time.Second,
		RegionHint: "PL",
		BotFloor:   1024,
		parse:      parseOLX,
	},
	models.PlatformMarktplaats: {
		Platform:   models.PlatformMarktplaats,
		BaseURL:    "https://www.marktplaats.nl",
		SearchURL:  "https://www.marktplaats.nl/q/%s/p/%d/",
		Pagination: PageParam,
		MaxPages:   3,
		MaxPerTerm: 40,
		DelayMin:   2 * time.Second,
		DelayMax:   4 * time.Second,
		RegionHint: "NL",
		BotFloor:   1024,
		parse:      parseMarktplaats,
	},
	models.PlatformMercadoLibre: {
		Platform:   models.PlatformMercadoLibre,
		BaseURL:    "https://listado.mercadolibre.com.mx",
		SearchURL:  "https://listado.mercadolibre.com.mx/%s_NoIndex_True_PAGE_%d",
		Pagination: PageParam,
		MaxPages:   3,
		MaxPerTerm: 40,
		DelayMin:   2 * time.Second,
		DelayMax:   4 * time.Second,
		RegionHint: "MX",
		BotFloor:   1024,
		parse:      parseMercadoLibre,
	},
	models.PlatformGumtree: {
		Platform:   models.PlatformGumtree,
		BaseURL:    "https://www.gumtree.com",
		SearchURL:  "https://www.gumtree.com/search?search_category=all&q=%s&page=%d",
		Pagination: PageParam,
		MaxPages:   3,
		MaxPerTerm: 40,
		DelayMin:   2 * time.Second,
		DelayMax:   4 * time.Second,
		RegionHint: "UK",
		BotFloor:   1024,
		parse:      parseGumtree,
	},
	models.PlatformAvito: {
		Platform:   models.PlatformAvito,
		BaseURL:    "https://www.avito.ru",
		SearchURL:  "https://www.avito.ru/all?q=%s&p=%d",
		Pagination: PageParam,
		MaxPages:   3,
		MaxPerTerm: 40,
		DelayMin:   3 * time.Second,
		DelayMax:   5 * time.Second,
		RegionHint: "RU",
		BotFloor:   2048,
		parse:      parseAvito,
	},
	models.PlatformAliExpress: {
		Platform:   models.PlatformAliExpress,
		BaseURL:    "https://www.aliexpress.com",
		SearchURL:  "https://www.aliexpress.com/w/wholesale-%s.html?page=%d",
		Pagination: PageParam,
		MaxPages:   2,
		MaxPerTerm: 20,
		DelayMin:   4 * time.Second,
		DelayMax:   7 * time.Second,
		RegionHint: "CN",
		BotFloor:   4096,
		parse:      parseAliExpress,
	},
	models.PlatformTaobao: {
		Platform:   models.PlatformTaobao,
		BaseURL:    "https://s.taobao.com",
		SearchURL:  "https://s.taobao.com/search?q=%s&s=%d",
		Pagination: PageParam, // static JSON endpoint; scroll regions need the renderer
		MaxPages:   2,
		MaxPerTerm: 20,
		DelayMin:   4 * time.Second,
		DelayMax:   7 * time.Second,
		RegionHint: "CN",
		BotFloor:   4096,
		parse:      parseTaobao,
	},
	models.PlatformMercari: {
		Platform:   models.PlatformMercari,
		BaseURL:    "https://www.mercari.com",
		SearchURL:  "https://www.mercari.com/search/?keyword=%s&page=%d",
		Pagination: InfiniteScroll,
		MaxPages:   2,
		MaxPerTerm: 30,
		DelayMin:   3 * time.Second,
		DelayMax:   5 * time.Second,
		RegionHint: "US",
		BotFloor:   2048,
		parse:      parseMercari,
	},
}
