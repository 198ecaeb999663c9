package catalog

import "github.com/vladislavdragonenkov/storefront/internal/domain"

const placeholderImage = "/placeholder.svg"

// defaultProducts — ассортимент витрины в порядке «featured».
var defaultProducts = []domain.Product{
	{
		ID:          "ext-1",
		Name:        "ProTech X1",
		Category:    "ABC",
		PriceMinor:  5999,
		Description: "Le ProTech X1 est notre extincteur polyvalent de qualité supérieure, conçu pour les maisons et les petites entreprises. Cet extincteur à poudre ABC combat efficacement les feux de classe A (matériaux solides), B (liquides inflammables) et C (équipements électriques sous tension).",
		Features: []string{
			"Capacité de 2kg",
			"Certifié pour les feux de classe A, B et C",
			"Indicateur de pression intégré",
			"Design compact pour un stockage facile",
			"Durée de vie de 5 ans",
		},
		Rating: 4.8,
		Image:  placeholderImage,
		Specifications: []domain.Specification{
			{Key: "Dimensions", Value: "35 x 15 cm"},
			{Key: "Poids", Value: "3.5 kg"},
			{Key: "Portée", Value: "3-4 mètres"},
			{Key: "Temps de décharge", Value: "12 secondes"},
			{Key: "Certification", Value: "NF EN3-7"},
		},
	},
	{
		ID:          "ext-2",
		Name:        "FireStop CO2",
		Category:    "CO2",
		PriceMinor:  7999,
		Description: "Le FireStop CO2 est spécialement conçu pour les environnements technologiques et les laboratoires. Cet extincteur à dioxyde de carbone est idéal pour les feux d'équipements électriques et électroniques sensibles où l'utilisation d'eau ou de poudre pourrait causer des dommages supplémentaires.",
		Features: []string{
			"Capacité de 2kg de CO2",
			"Parfait pour les équipements électroniques",
			"Ne laisse aucun résidu",
			"Diffuseur anti-statique",
			"Poignée ergonomique isolée",
		},
		Rating: 4.7,
		Image:  placeholderImage,
		Specifications: []domain.Specification{
			{Key: "Dimensions", Value: "40 x 12 cm"},
			{Key: "Poids", Value: "4.2 kg"},
			{Key: "Portée", Value: "2-3 mètres"},
			{Key: "Temps de décharge", Value: "8 secondes"},
			{Key: "Certification", Value: "NF EN3-7, NF EN3-8"},
		},
	},
	{
		ID:          "ext-3",
		Name:        "AquaShield",
		Category:    "Eau",
		PriceMinor:  4999,
		Description: "L'AquaShield est notre extincteur à eau pulvérisée avec additif, spécialement formulé pour les feux de classe A (matériaux solides comme le bois, le papier, les textiles). Sa technologie avancée permet une extinction rapide avec un minimum de dégâts d'eau.",
		Features: []string{
			"Capacité de 6 litres",
			"Additif écologique",
			"Idéal pour les matériaux solides",
			"Léger et facile à manipuler",
			"Durée de vie de 5 ans",
		},
		Rating: 4.6,
		Image:  placeholderImage,
		Specifications: []domain.Specification{
			{Key: "Dimensions", Value: "50 x 18 cm"},
			{Key: "Poids", Value: "9.5 kg"},
			{Key: "Portée", Value: "4-5 mètres"},
			{Key: "Temps de décharge", Value: "25 secondes"},
			{Key: "Certification", Value: "NF EN3-7"},
		},
	},
	{
		ID:          "ext-4",
		Name:        "FoamMaster",
		Category:    "Mousse",
		PriceMinor:  8999,
		Description: "Le FoamMaster est un extincteur à mousse haute performance conçu pour les feux de classe A et B. Sa mousse spéciale forme une couverture étouffante sur les liquides inflammables et empêche le réallumage, tout en refroidissant efficacement les matériaux solides.",
		Features: []string{
			"Capacité de 3 litres",
			"Idéal pour les feux de liquides",
			"Prévient le réallumage",
			"Faible impact environnemental",
			"Certifié pour usage maritime",
		},
		Rating: 4.9,
		Image:  placeholderImage,
		Specifications: []domain.Specification{
			{Key: "Dimensions", Value: "45 x 17 cm"},
			{Key: "Poids", Value: "6.8 kg"},
			{Key: "Portée", Value: "3-4 mètres"},
			{Key: "Temps de décharge", Value: "20 secondes"},
			{Key: "Certification", Value: "NF EN3-7, MED"},
		},
	},
	{
		ID:          "ext-5",
		Name:        "AutoGuard",
		Category:    "Spécialisé",
		PriceMinor:  3499,
		Description: "L'AutoGuard est un extincteur compact spécialement conçu pour les véhicules. Sa formule poudre ABC est efficace contre tous les types de feux susceptibles de se déclarer dans un véhicule, du moteur aux garnitures intérieures.",
		Features: []string{
			"Capacité de 1kg",
			"Format compact pour véhicules",
			"Support de fixation inclus",
			"Certification automobile",
			"Utilisable sur tous types de feux de véhicules",
		},
		Rating: 4.5,
		Image:  placeholderImage,
		Specifications: []domain.Specification{
			{Key: "Dimensions", Value: "25 x 10 cm"},
			{Key: "Poids", Value: "1.8 kg"},
			{Key: "Portée", Value: "2-3 mètres"},
			{Key: "Temps de décharge", Value: "8 secondes"},
			{Key: "Certification", Value: "NF EN3-7, CE"},
		},
	},
	{
		ID:          "ext-6",
		Name:        "KitchenPro K",
		Category:    "Cuisine",
		PriceMinor:  6999,
		Description: "Le KitchenPro K est spécialement formulé pour les feux de cuisine et de graisses (classe F). Son agent extincteur forme une pellicule savonneuse qui étouffe le feu et refroidit les huiles et graisses en ébullition, empêchant tout réallumage.",
		Features: []string{
			"Solution spéciale pour feux de classe F",
			"Design élégant adapté aux cuisines",
			"Simple à utiliser en situation d'urgence",
			"Nettoyage facile après utilisation",
			"Support mural inclus",
		},
		Rating: 4.9,
		Image:  placeholderImage,
		Specifications: []domain.Specification{
			{Key: "Dimensions", Value: "38 x 15 cm"},
			{Key: "Poids", Value: "4.0 kg"},
			{Key: "Portée", Value: "2-3 mètres"},
			{Key: "Temps de décharge", Value: "12 secondes"},
			{Key: "Certification", Value: "NF EN3-7, EN3-10"},
		},
	},
}
