package locale

import (
	"fmt"

	"golang.org/x/text/language"
)

// translations maps an English key to its pt-BR and ms renderings.
var translations = map[string][2]string{
	// Achievements
	"First Step":                  {"Primeiro Passo", "Langkah Pertama"},
	"Completed your first lesson": {"Concluiu sua primeira aula", "Menamatkan pelajaran pertama anda"},
	"Module Master":               {"Mestre do Módulo", "Pakar Modul"},
	"Completed an entire module":  {"Concluiu um módulo inteiro", "Menamatkan satu modul penuh"},
	"Course Complete":             {"Curso Concluído", "Kursus Tamat"},
	"Completed an entire course":  {"Concluiu um curso inteiro", "Menamatkan satu kursus penuh"},
	"XP Legend":                   {"Lenda do XP", "Legenda XP"},
	"Earned 5000 XP":              {"Ganhou 5000 XP", "Memperoleh 5000 XP"},
	"XP Hunter":                   {"Caçador de XP", "Pemburu XP"},
	"Earned 1000 XP":              {"Ganhou 1000 XP", "Memperoleh 1000 XP"},
	"Level 5":                     {"Nível 5", "Tahap 5"},
	"Reached level 5":             {"Alcançou o nível 5", "Mencapai tahap 5"},

	// Missing requirements
	"Video: %d%% / %d%% required":                 {"Vídeo: %d%% / %d%% necessário", "Video: %d%% / %d%% diperlukan"},
	"Text blocks: %d/%d (%.0f%% / %d%% required)": {"Blocos de texto: %d/%d (%.0f%% / %d%% necessário)", "Blok teks: %d/%d (%.0f%% / %d%% diperlukan)"},
	"%d required PDF(s) not viewed":               {"%d PDF(s) obrigatório(s) não visualizado(s)", "%d PDF wajib belum dilihat"},
	"%d required audio(s) not played":             {"%d áudio(s) obrigatório(s) não reproduzido(s)", "%d audio wajib belum dimainkan"},

	// Requirement checklist
	"Watch %d%% of the video":      {"Assista %d%% do vídeo", "Tonton %d%% video"},
	"Read %d%% of the text blocks": {"Leia %d%% dos blocos de texto", "Baca %d%% blok teks"},
	"View %d required PDF(s)":      {"Visualize %d PDF(s) obrigatório(s)", "Lihat %d PDF wajib"},
	"Play %d required audio(s)":    {"Reproduza %d áudio(s) obrigatório(s)", "Mainkan %d audio wajib"},
}

func init() {
	for key, tr := range translations {
		mustSet(language.English, key, key)
		mustSet(language.BrazilianPortuguese, key, tr[0])
		mustSet(language.Malay, key, tr[1])
	}
}

func mustSet(tag language.Tag, key, msg string) {
	if err := messages.SetString(tag, key, msg); err != nil {
		panic(fmt.Sprintf("locale: set %s %q: %v", tag, key, err))
	}
}
