package entityfilter

// domainKeywords maps an entity domain to the query keywords that mark it as
// relevant. Voice queries arrive in whatever language the assistant front-end
// is configured for, so each domain carries variants across the languages the
// upstream product ships in.
var domainKeywords = map[string][]string{
	"light": {
		// en, fr, de, es, it, pt, nl, pl
		"light", "lights", "lamp", "brightness",
		"lumière", "lumières", "lampe", "éclairage", "allume", "éteins",
		"licht", "lichter", "beleuchtung",
		"luz", "luces", "lámpara", "ilumina",
		"luce", "luci", "lampada",
		"luzes", "lâmpada", "iluminação",
		"lamp", "verlichting",
		"światło", "lampa",
	},
	"switch": {
		"switch", "switches", "outlet", "plug", "socket",
		"interrupteur", "prise",
		"schalter", "steckdose",
		"interruptor", "enchufe",
		"interruttore", "presa",
		"tomada",
		"schakelaar", "stopcontact",
		"przełącznik", "gniazdko",
	},
	"sensor": {
		"sensor", "sensors", "temperature", "humidity", "measurement",
		"capteur", "température", "humidité", "mesure",
		"temperatur", "feuchtigkeit", "messwert",
		"temperatura", "humedad",
		"sensore", "umidità",
		"umidade",
		"temperatuur", "vochtigheid",
		"czujnik", "wilgotność",
	},
	"binary_sensor": {
		"door", "window", "motion", "presence", "occupancy", "contact",
		"porte", "fenêtre", "mouvement", "présence",
		"tür", "fenster", "bewegung", "anwesenheit",
		"puerta", "ventana", "movimiento", "presencia",
		"porta", "finestra", "movimento", "presenza",
		"janela",
		"deur", "raam", "beweging", "aanwezigheid",
		"drzwi", "okno", "ruch", "obecność",
	},
	"climate": {
		"climate", "thermostat", "heating", "heater", "cooling", "hvac",
		"chauffage", "climatisation", "thermostat",
		"heizung", "klimaanlage",
		"calefacción", "climatización", "termostato",
		"riscaldamento", "condizionatore", "termostato",
		"aquecimento", "ar condicionado",
		"verwarming", "airco",
		"ogrzewanie", "klimatyzacja",
	},
	"cover": {
		"cover", "blind", "blinds", "shutter", "shutters", "curtain", "garage door",
		"volet", "volets", "store", "stores", "rideau", "rideaux",
		"rollladen", "jalousie", "vorhang",
		"persiana", "persianas", "cortina",
		"tapparella", "tenda",
		"estore", "portão",
		"rolluik", "gordijn",
		"roleta", "zasłona",
	},
}
