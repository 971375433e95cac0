package generation

import (
	"fmt"
	"strings"

	"lokalfakta/server/internal/models"
)

// NoAmenityInstruction is added when no nearby amenities were found, so the
// model does not invent counts
const NoAmenityInstruction = "No data about nearby amenities is available. Do not mention specific numbers of restaurants, shops, transit stops or other amenities."

const systemPrompt = `You are an experienced Swedish commercial real-estate copywriter.
Write listing texts in Swedish that are factual, concrete and free of exaggeration.
Only use facts present in the provided data. Never invent numbers, distances or names.
Respond with a JSON object with the fields "title" (string, at most 120 characters),
"description" (string, 3-5 short paragraphs) and "tags" (array of 5-12 short strings).`

// PromptData is everything known about a listing when its text is written
type PromptData struct {
	Input        models.GenerateInput
	City         string
	Nearby       models.NearbyData
	Walkability  models.WalkabilityData
	Demographics *models.DemographicsData
	PriceContext *models.PriceContext
	AreaContext  *models.AreaContext
}

// SystemPrompt returns the fixed instructions for every strategy
func SystemPrompt() string {
	return systemPrompt
}

// BuildPrompt renders the listing facts and every non-empty enrichment
// section as the user prompt
func BuildPrompt(d PromptData) string {
	var b strings.Builder

	writeSection(&b, "Property", propertySection(d))

	if d.Nearby.Total() == 0 {
		writeSection(&b, "Nearby amenities", []string{NoAmenityInstruction})
	} else {
		writeSection(&b, "Nearby amenities", nearbySection(d.Nearby))
		writeSection(&b, "Walkability", walkabilitySection(d.Walkability))
	}

	writeSection(&b, "Municipality statistics", demographicsSection(d.Demographics))
	writeSection(&b, "Comparable listings", priceSection(d.PriceContext, d.Input.Type))
	if d.AreaContext != nil {
		writeSection(&b, "About the area", []string{
			d.AreaContext.Summary,
			fmt.Sprintf("Source: %s (%s)", d.AreaContext.Title, d.AreaContext.URL),
		})
	}

	if len(d.Input.Images) > 0 {
		b.WriteString("Photos of the premises are attached. Describe only what is clearly visible.\n")
	}
	b.WriteString("Write the title, description and tags now.")
	return b.String()
}

func writeSection(b *strings.Builder, heading string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString("## " + heading + "\n")
	for _, line := range lines {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString("\n")
}

func propertySection(d PromptData) []string {
	in := d.Input
	lines := []string{
		"Address: " + strings.TrimSpace(in.Address),
	}
	if d.City != "" {
		lines = append(lines, "City: "+d.City)
	}
	lines = append(lines, "Category: "+strings.ReplaceAll(in.Category, ",", ", "))

	switch in.Type {
	case models.ListingTypeRent:
		lines = append(lines, "Offered for rent", fmt.Sprintf("Rent: %s SEK per year", formatNumber(in.Price)))
	default:
		lines = append(lines, "Offered for sale", fmt.Sprintf("Price: %s SEK", formatNumber(in.Price)))
	}
	lines = append(lines, fmt.Sprintf("Size: %s m²", formatNumber(in.Size)))

	if in.Size > 0 && in.Price > 0 {
		lines = append(lines, fmt.Sprintf("Price per m²: %s SEK", formatNumber(in.Price/in.Size)))
	}
	if h := strings.TrimSpace(in.Highlights); h != "" {
		lines = append(lines, "Highlights from the owner: "+h)
	}
	return lines
}

func nearbySection(n models.NearbyData) []string {
	var lines []string
	counts := []struct {
		label string
		count int
	}{
		{"Restaurants and cafés within 2.5 km", n.Restaurants},
		{"Shops within 2.5 km", n.Shops},
		{"Gyms and sports centres within 2.5 km", n.Gyms},
		{"Parking facilities within 2.5 km", n.Parking},
		{"Schools within 3 km", n.Schools},
		{"Healthcare facilities within 2.5 km", n.Healthcare},
	}
	for _, c := range counts {
		if c.count > 0 {
			lines = append(lines, fmt.Sprintf("%s: %d", c.label, c.count))
		}
	}
	if line := transitLine("Bus stops", n.BusStops); line != "" {
		lines = append(lines, line)
	}
	if line := transitLine("Train, tram and metro stations", n.TrainStations); line != "" {
		lines = append(lines, line)
	}
	return lines
}

func transitLine(label string, t models.TransitData) string {
	if t.Count == 0 {
		return ""
	}
	line := fmt.Sprintf("%s within 3 km: %d", label, t.Count)
	if t.NearestDistanceMeters != nil {
		name := "unnamed"
		if t.NearestName != nil && *t.NearestName != "" {
			name = *t.NearestName
		}
		line += fmt.Sprintf(" (nearest: %s, %d m)", name, *t.NearestDistanceMeters)
	}
	return line
}

func walkabilitySection(w models.WalkabilityData) []string {
	return []string{
		fmt.Sprintf("Walk score: %d/100 (%s)", w.WalkScore, w.WalkLabel),
		fmt.Sprintf("Bike score: %d/100 (%s)", w.BikeScore, w.BikeLabel),
	}
}

func demographicsSection(d *models.DemographicsData) []string {
	if d == nil {
		return nil
	}
	lines := []string{fmt.Sprintf("Population of %s municipality: %s", d.City, formatNumber(d.Population))}
	if d.MedianIncome != nil {
		lines = append(lines, fmt.Sprintf("Median annual income: %s SEK", formatNumber(*d.MedianIncome)))
	}
	if d.WorkingAgePercent != nil {
		lines = append(lines, fmt.Sprintf("Share of residents aged 20-64: %.1f%%", *d.WorkingAgePercent))
	}
	if d.TotalBusinesses != nil {
		lines = append(lines, fmt.Sprintf("Registered workplaces: %s", formatNumber(*d.TotalBusinesses)))
	}
	if d.CrimeRate != nil {
		lines = append(lines, fmt.Sprintf("Reported crimes per 100,000 residents: %s", formatNumber(*d.CrimeRate)))
	}
	if d.SaferThanNationalAverage() {
		lines = append(lines, "Crime rate is below the national average; the area may be described as safe.")
	}
	return lines
}

func priceSection(p *models.PriceContext, t models.ListingType) []string {
	if p == nil {
		return nil
	}
	unit := "SEK"
	if t == models.ListingTypeRent {
		unit = "SEK per year"
	}
	return []string{
		fmt.Sprintf("%d comparable listings in the same city", p.Count),
		fmt.Sprintf("Median: %s %s", formatNumber(p.MedianPrice), unit),
		fmt.Sprintf("Range: %s to %s %s", formatNumber(p.MinPrice), formatNumber(p.MaxPrice), unit),
	}
}

// formatNumber groups thousands with spaces, as Swedish texts do
func formatNumber(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := fmt.Sprintf("%d", n)
	var out []byte
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ' ')
		}
		out = append(out, digits[i])
	}
	return sign + string(out)
}
