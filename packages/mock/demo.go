package mock

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// demoCircuit mirrors the motorsport API's circuit shape.
type demoCircuit struct {
	CircuitID   string       `json:"circuitId"`
	URL         string       `json:"url"`
	CircuitName string       `json:"circuitName"`
	Location    demoLocation `json:"Location"`
}

type demoLocation struct {
	Lat      string `json:"lat"`
	Long     string `json:"long"`
	Locality string `json:"locality"`
	Country  string `json:"country"`
}

// the 2017 calendar, all twenty rounds
var demoCircuits = []demoCircuit{
	{"albert_park", "http://en.wikipedia.org/wiki/Melbourne_Grand_Prix_Circuit", "Albert Park Grand Prix Circuit", demoLocation{"-37.8497", "144.968", "Melbourne", "Australia"}},
	{"shanghai", "http://en.wikipedia.org/wiki/Shanghai_International_Circuit", "Shanghai International Circuit", demoLocation{"31.3389", "121.22", "Shanghai", "China"}},
	{"bahrain", "http://en.wikipedia.org/wiki/Bahrain_International_Circuit", "Bahrain International Circuit", demoLocation{"26.0325", "50.5106", "Sakhir", "Bahrain"}},
	{"sochi", "http://en.wikipedia.org/wiki/Sochi_Autodrom", "Sochi Autodrom", demoLocation{"43.4057", "39.9578", "Sochi", "Russia"}},
	{"catalunya", "http://en.wikipedia.org/wiki/Circuit_de_Barcelona-Catalunya", "Circuit de Barcelona-Catalunya", demoLocation{"41.57", "2.26111", "Montmeló", "Spain"}},
	{"monaco", "http://en.wikipedia.org/wiki/Circuit_de_Monaco", "Circuit de Monaco", demoLocation{"43.7347", "7.42056", "Monte-Carlo", "Monaco"}},
	{"villeneuve", "http://en.wikipedia.org/wiki/Circuit_Gilles_Villeneuve", "Circuit Gilles Villeneuve", demoLocation{"45.5", "-73.5228", "Montreal", "Canada"}},
	{"BAK", "http://en.wikipedia.org/wiki/Baku_City_Circuit", "Baku City Circuit", demoLocation{"40.3725", "49.8533", "Baku", "Azerbaijan"}},
	{"red_bull_ring", "http://en.wikipedia.org/wiki/Red_Bull_Ring", "Red Bull Ring", demoLocation{"47.2197", "14.7647", "Spielberg", "Austria"}},
	{"silverstone", "http://en.wikipedia.org/wiki/Silverstone_Circuit", "Silverstone Circuit", demoLocation{"52.0786", "-1.01694", "Silverstone", "UK"}},
	{"hungaroring", "http://en.wikipedia.org/wiki/Hungaroring", "Hungaroring", demoLocation{"47.5789", "19.2486", "Budapest", "Hungary"}},
	{"spa", "http://en.wikipedia.org/wiki/Circuit_de_Spa-Francorchamps", "Circuit de Spa-Francorchamps", demoLocation{"50.4372", "5.97139", "Spa", "Belgium"}},
	{"monza", "http://en.wikipedia.org/wiki/Autodromo_Nazionale_Monza", "Autodromo Nazionale di Monza", demoLocation{"45.6156", "9.28111", "Monza", "Italy"}},
	{"marina_bay", "http://en.wikipedia.org/wiki/Marina_Bay_Street_Circuit", "Marina Bay Street Circuit", demoLocation{"1.2914", "103.864", "Marina Bay", "Singapore"}},
	{"sepang", "http://en.wikipedia.org/wiki/Sepang_International_Circuit", "Sepang International Circuit", demoLocation{"2.76083", "101.738", "Kuala Lumpur", "Malaysia"}},
	{"suzuka", "http://en.wikipedia.org/wiki/Suzuka_Circuit", "Suzuka Circuit", demoLocation{"34.8431", "136.541", "Suzuka", "Japan"}},
	{"americas", "http://en.wikipedia.org/wiki/Circuit_of_the_Americas", "Circuit of the Americas", demoLocation{"30.1328", "-97.6411", "Austin", "USA"}},
	{"rodriguez", "http://en.wikipedia.org/wiki/Aut%C3%B3dromo_Hermanos_Rodr%C3%ADguez", "Autódromo Hermanos Rodríguez", demoLocation{"19.4042", "-99.0907", "Mexico City", "Mexico"}},
	{"interlagos", "http://en.wikipedia.org/wiki/Aut%C3%B3dromo_Jos%C3%A9_Carlos_Pace", "Autódromo José Carlos Pace", demoLocation{"-23.7036", "-46.6997", "São Paulo", "Brazil"}},
	{"yas_marina", "http://en.wikipedia.org/wiki/Yas_Marina_Circuit", "Yas Marina Circuit", demoLocation{"24.4672", "54.6031", "Abu Dhabi", "UAE"}},
}

var demoSeasons = []string{
	"2010", "2011", "2012", "2013", "2014",
	"2015", "2016", "2017", "2018", "2019",
}

// LoadDemo registers a built-in motorsport dataset under /api/f1 so the
// bundled example files run against the mock server out of the box.
func (s *Server) LoadDemo() {
	s.router.Add(&Route{
		Method:   "GET",
		Pattern:  "/api/f1/seasons.json",
		Name:     "demo seasons",
		Response: jsonRoute(envelope("SeasonTable", map[string]any{"Seasons": seasonRows()})),
	})

	circuitsBody := envelope("CircuitTable", map[string]any{
		"season":   "2017",
		"Circuits": demoCircuits,
	})
	for _, pattern := range []string{"/api/f1/2017/circuits.json", "/api/f1/current/circuits.json"} {
		s.router.Add(&Route{
			Method:   "GET",
			Pattern:  pattern,
			Name:     "demo circuits 2017",
			Response: jsonRoute(circuitsBody),
		})
	}

	for _, c := range demoCircuits {
		s.router.Add(&Route{
			Method:  "GET",
			Pattern: fmt.Sprintf("/api/f1/circuits/%s.json", c.CircuitID),
			Name:    "demo circuit " + c.CircuitID,
			Response: jsonRoute(envelope("CircuitTable", map[string]any{
				"circuitId": c.CircuitID,
				"Circuits":  []demoCircuit{c},
			})),
		})
	}

	s.router.Add(&Route{
		Method:  "GET",
		Pattern: "/api/f1/2017/driverStandings.json",
		Name:    "demo driver standings 2017",
		Response: jsonRoute(envelope("StandingsTable", map[string]any{
			"season": "2017",
			"StandingsLists": []map[string]any{{
				"season":          "2017",
				"round":           "20",
				"DriverStandings": demoStandings(),
			}},
		})),
	})
}

func seasonRows() []map[string]string {
	rows := make([]map[string]string, len(demoSeasons))
	for i, season := range demoSeasons {
		rows[i] = map[string]string{
			"season": season,
			"url":    fmt.Sprintf("https://en.wikipedia.org/wiki/%s_Formula_One_World_Championship", season),
		}
	}
	return rows
}

func demoStandings() []map[string]any {
	type entry struct {
		position string
		points   string
		wins     string
		driverID string
		given    string
		family   string
	}
	top := []entry{
		{"1", "363", "9", "hamilton", "Lewis", "Hamilton"},
		{"2", "317", "5", "vettel", "Sebastian", "Vettel"},
		{"3", "305", "3", "bottas", "Valtteri", "Bottas"},
	}
	rows := make([]map[string]any, len(top))
	for i, e := range top {
		rows[i] = map[string]any{
			"position": e.position,
			"points":   e.points,
			"wins":     e.wins,
			"Driver": map[string]string{
				"driverId":   e.driverID,
				"givenName":  e.given,
				"familyName": e.family,
			},
		}
	}
	return rows
}

// envelope wraps a table in the API's MRData wrapper.
func envelope(table string, value map[string]any) string {
	doc := map[string]any{
		"MRData": map[string]any{
			"xmlns":  "http://ergast.com/mrd/1.4",
			"series": "f1",
			table:    value,
		},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return `{"MRData": {}}`
	}
	return string(data)
}

func jsonRoute(body string) *Response {
	return &Response{
		StatusCode:  http.StatusOK,
		ContentType: "application/json",
		Headers:     make(map[string]string),
		Body:        body,
	}
}
