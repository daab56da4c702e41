package orchestrator

import "fmt"

// Response phrasing. The assistant speaks the turn's language; anything not
// Russian falls back to English.

func freshText(lang string, n int) string {
	if lang == "ru" {
		switch n {
		case 0:
			return "Партий по вашему запросу не найдено."
		case 1:
			return "Найдена 1 партия."
		default:
			return fmt.Sprintf("Найдено партий: %d.", n)
		}
	}
	switch n {
	case 0:
		return "No games matched your query."
	case 1:
		return "Found 1 game."
	default:
		return fmt.Sprintf("Found %d games.", n)
	}
}

func refinementText(lang string, matched, of int) string {
	if lang == "ru" {
		if matched == 0 {
			return fmt.Sprintf("Ни одна из %d партий не подходит под этот фильтр.", of)
		}
		return fmt.Sprintf("Подходит %d из %d партий.", matched, of)
	}
	if matched == 0 {
		return fmt.Sprintf("None of the %d games match that filter.", of)
	}
	return fmt.Sprintf("%d of the %d games match.", matched, of)
}

func nothingToFilterText(lang string) string {
	if lang == "ru" {
		return "Пока нечего фильтровать. Сначала попросите найти партии."
	}
	return "There are no results to filter yet. Ask me to find some games first."
}
