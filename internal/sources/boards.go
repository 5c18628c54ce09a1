package sources

import (
	"github.com/PuerkitoBio/goquery"
)

// NewJobSearchMalawi returns the adapter for jobsearchmalawi.com. Cards are
// the job links themselves; title, company and location are required.
func NewJobSearchMalawi(opts ...Option) *ListingCrawler {
	const name = "jobsearchmalawi"
	return newListingCrawler(&ListingCrawler{
		name:         name,
		sourceID:     "jobsearchmalawi.com",
		baseURL:      "https://jobsearchmalawi.com/jobs/",
		pages:        3,
		cardSelector: "a[href*='/job/']",
		parseCard: func(card *goquery.Selection) (Card, error) {
			href, _ := card.Attr("href")
			date, _ := card.Find("li.date time").Attr("datetime")
			c := Card{
				Title:          selText(card.Find("h3")),
				Company:        selText(card.Find("div.company strong")),
				Location:       selText(card.Find("div.location")),
				EmploymentType: selText(card.Find("li.job-type")),
				URL:            href,
				RawDate:        date,
			}
			return c, requireFields(name, href,
				[2]string{"title", c.Title},
				[2]string{"company", c.Company},
				[2]string{"location", c.Location},
				[2]string{"url", c.URL})
		},
	}, opts)
}

// NewNtchito returns the adapter for ntchito.com. The board does not show
// the employer, so company is always unknown.
func NewNtchito(opts ...Option) *ListingCrawler {
	const name = "ntchito"
	return newListingCrawler(&ListingCrawler{
		name:         name,
		sourceID:     "ntchito.com",
		baseURL:      "https://ntchito.com/jobs/",
		pages:        2,
		cardSelector: "article.job_listing",
		parseCard: func(card *goquery.Selection) (Card, error) {
			heading := card.Find("h2.entry-title")
			href, _ := heading.Find("a").Attr("href")
			date, ok := card.Find("time").Attr("datetime")
			if !ok {
				date = selText(card.Find("li.date"))
			}
			c := Card{
				Title:          selText(heading),
				Location:       selText(card.Find("div.company-address")),
				EmploymentType: selText(card.Find("li.job-type")),
				URL:            href,
				RawDate:        date,
			}
			return c, requireFields(name, href,
				[2]string{"title", c.Title},
				[2]string{"location", c.Location},
				[2]string{"url", c.URL})
		},
	}, opts)
}

// NewCareersMW returns the adapter for careersmw.com, a WP Job Manager
// board.
func NewCareersMW(opts ...Option) *ListingCrawler {
	const name = "careersmw"
	return newListingCrawler(&ListingCrawler{
		name:         name,
		sourceID:     "careersmw.com",
		baseURL:      "https://careersmw.com/jobs/",
		pages:        2,
		cardSelector: "ul.job_listings li.job_listing",
		parseCard: func(card *goquery.Selection) (Card, error) {
			href, _ := card.Find("a").First().Attr("href")
			date, ok := card.Find("li.date time").Attr("datetime")
			if !ok {
				date = selText(card.Find("li.date"))
			}
			c := Card{
				Title:          selText(card.Find("div.position h3")),
				Company:        selText(card.Find("div.company strong")),
				Location:       selText(card.Find("div.location")),
				EmploymentType: selText(card.Find("li.job-type")),
				URL:            href,
				RawDate:        date,
			}
			return c, requireFields(name, href,
				[2]string{"title", c.Title},
				[2]string{"url", c.URL})
		},
	}, opts)
}
